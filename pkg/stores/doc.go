// Package stores persists calculation history in SQLite.
//
// Every successful calculation can be saved as an AnalysisRecord: the
// submitted input and full result as JSON blobs, plus the four headline
// metrics denormalized into columns so history listings and trend
// queries never need to parse the blobs. Advisory findings recorded
// against an analysis live in a child table and are pruned with it.
//
// The schema is managed through embedded golang-migrate migrations and
// the database runs in WAL mode with foreign keys enabled.
package stores
