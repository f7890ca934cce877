// Auditdex answers compliance questions about corporate spending with
// evidence pulled from three corpora: the policy handbook, the email
// archive and the transaction ledger.
//
// Usage:
//
//	# Start the HTTP API server
//	auditdex serve
//
//	# Ask one question from the command line
//	auditdex query "Did anyone exceed the $500 purchase limit?"
//
//	# Rebuild the vector indices from the corpus files
//	auditdex reindex
//
//	# Show version information
//	auditdex version
package main

func main() {
	Execute()
}
