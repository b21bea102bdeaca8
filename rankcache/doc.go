// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package rankcache mirrors the computed queue order into a Redis
// sorted set. The mirror is optional and best-effort: the service runs
// without it, and a failed rebuild only logs a warning.
package rankcache
