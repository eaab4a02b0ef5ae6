// Package fileutil provides owner-only file operations for the files
// warden persists: trust rule stores, the audit database, and daemon
// state. A trust store decides which agent commands run without human
// review, so a world-writable copy is equivalent to handing out shell
// access.
//
// On Unix, standard file mode bits (0600, 0700) are enforced.
// On Windows, DACL-based ACLs restrict access to the current user only,
// since Unix permission bits are silently ignored by the Windows kernel.
package fileutil
