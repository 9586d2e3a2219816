// Package secrets scans generated pipelines for hardcoded secrets using
// the Gitleaks rule set.
//
// Findings are reported as HARDCODED_SECRET validation warnings located at
// the job that contains them. The secret value itself never leaves this
// package: issues and log entries carry the rule and line only.
//
// A project may silence false positives with a .gitleaks.toml allowlist:
//
//	[allowlist]
//	regexes = ['''EXAMPLE_TOKEN''']
package secrets
