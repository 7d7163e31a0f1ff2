// Package store holds the persisted knowledge base: the vector store
// backends (sqlite-vec and Milvus) and the ingestion manifest.
package store
