// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides ID generation and moderator key validation.

# ID Generation

GenerateID creates random hex IDs for duel and rename records:

	id, err := auth.GenerateID(16) // 32 hex chars

# Moderator Key

Moderation endpoints (rename approval, asset uploads, manual broadcasts)
are gated by a single shared secret supplied via the X-Moderator-Key
header and compared in constant time:

	if err := auth.ValidateModeratorKey(key, cfg.ModeratorKey); err != nil {
		// reject
	}

Travelers themselves are identified by the opaque numeric id assigned by
the chat platform; there is no credential to validate on their side.
*/
package auth
