// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain types and request/response structures.

# Status Constants

Anomaly lifecycle:

	NEW → FIXED → DECRYPTED
	NEW|FIXED → EXPIRED (superseded by a newer packet)

Duel lifecycle:

	PENDING → DONE | DECLINED | EXPIRED

Rename lifecycle:

	PENDING → APPROVED | DECLINED

Terminal states are final; the handlers enforce transitions with
conditional updates.

# JSON Conventions

Fields tagged "-" are never exposed: a packet's payload leaves the server
only through a successful reveal, and its owner id is implied by the
request identity.

# FeedMessage

FeedMessage is the unit handed to the delivery collaborator (the
WebSocket feed hub). Type is one of "anomaly", "digest", "duel",
"payload".
*/
package models
