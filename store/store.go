// Package store provides concrete durable.Store implementations:
//
//   - MemoryStore: mutex-guarded in-memory backend, used by tests and
//     single-process examples.
//   - LibSQLStore: the canonical relational backend, an embedded libSQL
//     file with the steps/workflows schema applied via migrations.
//   - DynamoDBStore: single-table AWS DynamoDB backend, for deployments
//     that already standardize on a key-value store with range scans.
package store
