// Package checkpoint keeps the batch ledger: one entry per identity with the
// number of attempts and the outcome of the last one.
//
// A batch that is interrupted resumes from the ledger. Identities that keep
// failing are skipped once they reach the configured attempt limit.
//
// The default ledger lives in the platform data directory:
//   - Linux: ~/.local/share/xscraper/checkpoints/
//   - macOS: ~/Library/Application Support/xscraper/checkpoints/
//   - Windows: %APPDATA%/xscraper/checkpoints/
//
// The file is replaced atomically on every update.
package checkpoint
