// Package biz implements the knowledge base pipeline: topic map and corpus
// loading, text splitting, ingestion, retrieval, prompt construction,
// model output parsing and prediction.
package biz
