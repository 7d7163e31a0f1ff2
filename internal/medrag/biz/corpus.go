package biz

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/medrag/pkg/errors"
)

// DefaultExtensions lists the document extensions ingested by default.
var DefaultExtensions = []string{".md"}

// Document 是语料中的一个文件。
type Document struct {
	// Path 文件完整路径。
	Path string
	// FileName 文件名，作为切片的 source_file。
	FileName string
	// TopicName 主题目录名。
	TopicName string
	// TopicID 主题 ID。
	TopicID int
	// Content 文件内容。
	Content string
}

// CorpusReport summarizes a corpus scan.
type CorpusReport struct {
	TopicsProcessed int      `json:"topics_processed"`
	Documents       int      `json:"documents"`
	SkippedFolders  []string `json:"skipped_folders,omitempty"`
	EmptyFolders    []string `json:"empty_folders,omitempty"`
}

// ScanCorpus reads every topic folder under root in name order.
//
// Folders missing from the topic map are skipped with a warning, mapped
// folders without documents are noted, and any unreadable document fails
// the whole scan.
func ScanCorpus(root string, topics *TopicMap, extensions []string) ([]*Document, *CorpusReport, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.ErrCorpusMissing.WithCause(err)
		}
		return nil, nil, errors.ErrIngestionFailed.WithCause(fmt.Errorf("read corpus root: %w", err))
	}

	report := &CorpusReport{}
	var docs []*Document

	// os.ReadDir 已按名称排序
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()

		topicID, ok := topics.ID(folder)
		if !ok {
			logger.Warnw("folder not in topic map, skipping", "folder", folder)
			report.SkippedFolders = append(report.SkippedFolders, folder)
			continue
		}
		report.TopicsProcessed++

		folderDocs, err := readTopicFolder(filepath.Join(root, folder), folder, topicID, extensions)
		if err != nil {
			return nil, nil, err
		}
		if len(folderDocs) == 0 {
			logger.Infow("no documents found in topic folder", "folder", folder)
			report.EmptyFolders = append(report.EmptyFolders, folder)
			continue
		}
		docs = append(docs, folderDocs...)
	}

	report.Documents = len(docs)
	return docs, report, nil
}

func readTopicFolder(dir, topicName string, topicID int, extensions []string) ([]*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.ErrIngestionFailed.WithCause(fmt.Errorf("read topic folder %s: %w", dir, err))
	}

	var docs []*Document
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.ErrIngestionFailed.WithCause(fmt.Errorf("read document %s: %w", path, err))
		}
		docs = append(docs, &Document{
			Path:      path,
			FileName:  entry.Name(),
			TopicName: topicName,
			TopicID:   topicID,
			Content:   string(content),
		})
	}
	return docs, nil
}

func hasExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
