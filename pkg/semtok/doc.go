/*
Package semtok provides semantic token support for Datastar attributes.

Every attribute match is split into up to three kinds of tokens:

	data-on-click:key__debounce.500ms="..."
	|-----------| |-|  |------------|
	  decorator  property  modifier

Tokens are produced per line from matcher output and then packed into the
LSP relative encoding:

	  matches
	     |
	     v
	+-------------+
	| FromMatches |
	+-------------+
	     |
	     v
	+-------------+
	|   Encode    |  [deltaLine, deltaStart, length, type, modifiers] ...
	+-------------+

Columns are in the same unit as the matcher that produced the matches.
*/
package semtok
