// Package cache persists built packet indexes so that reopening an
// unchanged trace skips the scan.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/index"
	"github.com/penwyp/go-apitrace/internal/util"
)

// entryVersion changes whenever IndexEntry's layout does.
const entryVersion = 1

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonNoFingerprint
	MissReasonNotFound
	MissReasonVersion
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "hit"
	case MissReasonError:
		return "error"
	case MissReasonInode:
		return "inode changed"
	case MissReasonSize:
		return "size changed"
	case MissReasonModTime:
		return "modtime changed"
	case MissReasonFingerprint:
		return "fingerprint changed"
	case MissReasonNoFingerprint:
		return "no fingerprint"
	case MissReasonNotFound:
		return "not found"
	case MissReasonVersion:
		return "stale format"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// IndexEntry is the persisted form of one built index.
type IndexEntry struct {
	Version            int                  `json:"version"`
	FilePath           string               `json:"filePath"`
	LastModified       int64                `json:"lastModified"`
	FileSize           int64                `json:"fileSize"`
	Inode              uint64               `json:"inode"`
	ContentFingerprint string               `json:"contentFingerprint"`
	CachedAt           int64                `json:"cachedAt"`
	FileHeader         model.FileHeader     `json:"fileHeader"`
	Records            []model.PacketRecord `json:"records"`
	Issues             []model.LoadIssue    `json:"issues"`
}

type CacheResult struct {
	Entry      *IndexEntry
	Found      bool
	MissReason CacheMissReason
}

type Cache interface {
	Get(tracePath string) CacheResult
	Set(entry *IndexEntry) error
	Delete(tracePath string) error
	Clear() error
}

// FileCache stores one JSON document per trace in baseDir and keeps the
// entries it has validated in memory.
type FileCache struct {
	baseDir     string
	logger      util.LoggerInterface
	mu          sync.Mutex
	memoryCache map[string]*IndexEntry
}

func NewFileCache(baseDir string, logger util.LoggerInterface) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &FileCache{
		baseDir:     baseDir,
		logger:      util.OrNop(logger),
		memoryCache: make(map[string]*IndexEntry),
	}, nil
}

// cacheKey derives the entry file name from the absolute trace path.
func cacheKey(tracePath string) string {
	if abs, err := filepath.Abs(tracePath); err == nil {
		tracePath = abs
	}
	sum := sha256.Sum256([]byte(tracePath))
	return hex.EncodeToString(sum[:12])
}

func (c *FileCache) entryPath(tracePath string) string {
	return filepath.Join(c.baseDir, cacheKey(tracePath)+".json")
}

func (c *FileCache) Get(tracePath string) CacheResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(tracePath)
	if memEntry, exists := c.memoryCache[key]; exists {
		if ret := c.validateEntry(memEntry); ret.cached {
			return CacheResult{Entry: memEntry, Found: true, MissReason: MissReasonNone}
		}
		delete(c.memoryCache, key)
	}

	return c.getFromFile(key, tracePath)
}

func (c *FileCache) getFromFile(key, tracePath string) CacheResult {
	data, err := os.ReadFile(c.entryPath(tracePath))
	if err != nil {
		return CacheResult{MissReason: MissReasonNotFound}
	}

	var entry IndexEntry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("index cache entry unreadable", util.F("trace", tracePath), util.F("error", err))
		return CacheResult{MissReason: MissReasonError}
	}
	if entry.Version != entryVersion {
		return CacheResult{MissReason: MissReasonVersion}
	}

	if ret := c.validateEntry(&entry); !ret.cached {
		return CacheResult{MissReason: ret.reason}
	}

	c.memoryCache[key] = &entry
	return CacheResult{Entry: &entry, Found: true, MissReason: MissReasonNone}
}

type validateResult struct {
	cached bool
	reason CacheMissReason
}

// validateEntry checks inode, size and modification time, then the content
// fingerprint. Files untouched for two days skip the fingerprint read.
func (c *FileCache) validateEntry(entry *IndexEntry) validateResult {
	log := c.logger.With(util.F("trace", entry.FilePath))

	currentInfo, err := util.GetFileInfo(entry.FilePath)
	if err != nil {
		log.Debug("index cache validation failed", util.F("error", err))
		return validateResult{reason: MissReasonError}
	}

	if currentInfo.Inode != entry.Inode {
		log.Debug("index cache invalidated: inode changed", util.F("cached", entry.Inode), util.F("current", currentInfo.Inode))
		return validateResult{reason: MissReasonInode}
	}
	if currentInfo.Size != entry.FileSize {
		log.Debug("index cache invalidated: size changed", util.F("cached", entry.FileSize), util.F("current", currentInfo.Size))
		return validateResult{reason: MissReasonSize}
	}
	if currentInfo.ModTime != entry.LastModified {
		log.Debug("index cache invalidated: modtime changed", util.F("cached", entry.LastModified), util.F("current", currentInfo.ModTime))
		return validateResult{reason: MissReasonModTime}
	}

	if time.Since(time.Unix(0, currentInfo.ModTime)) > 48*time.Hour {
		return validateResult{cached: true}
	}

	if entry.ContentFingerprint == "" {
		log.Debug("index cache invalidated: no fingerprint")
		return validateResult{reason: MissReasonNoFingerprint}
	}
	fingerprint, err := util.CalculateFileFingerprint(entry.FilePath)
	if err != nil {
		log.Debug("index cache invalidated: fingerprint failed", util.F("error", err))
		return validateResult{reason: MissReasonNoFingerprint}
	}
	if fingerprint != entry.ContentFingerprint {
		log.Debug("index cache invalidated: fingerprint mismatch", util.F("cached", entry.ContentFingerprint), util.F("current", fingerprint))
		return validateResult{reason: MissReasonFingerprint}
	}
	return validateResult{cached: true}
}

// NewIndexEntry captures a built index under the absolute path of its file,
// stamped with the file identity observed before the scan.
func NewIndexEntry(idx *index.PacketIndex, issues []model.LoadIssue) *IndexEntry {
	path := idx.Path()
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id := idx.Identity()
	return &IndexEntry{
		FilePath:           path,
		LastModified:       id.ModTime,
		FileSize:           id.Size,
		Inode:              id.Inode,
		ContentFingerprint: id.Fingerprint,
		FileHeader:         idx.FileHeader(),
		Records:            idx.Records(),
		Issues:             append([]model.LoadIssue(nil), issues...),
	}
}

// Identity returns the file state the entry was built from.
func (e *IndexEntry) Identity() index.Identity {
	return index.Identity{
		FileInfo:    util.FileInfo{ModTime: e.LastModified, Size: e.FileSize, Inode: e.Inode},
		Fingerprint: e.ContentFingerprint,
	}
}

// Set writes entry. The entry keeps the identity it was built with; the
// file is not stat'ed again, since it may have grown since the scan.
func (c *FileCache) Set(entry *IndexEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.FileSize < model.FileHeaderSize || entry.ContentFingerprint == "" {
		return fmt.Errorf("index cache entry for %s has no file identity", entry.FilePath)
	}
	entry.Version = entryVersion
	entry.CachedAt = time.Now().Unix()

	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal index cache entry: %w", err)
	}

	cachePath := c.entryPath(entry.FilePath)
	tmpFile := cachePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("write index cache entry: %w", err)
	}
	if err := os.Rename(tmpFile, cachePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("rename index cache entry: %w", err)
	}

	c.memoryCache[cacheKey(entry.FilePath)] = entry
	c.logger.Debug("index cached", util.F("trace", entry.FilePath), util.F("rows", len(entry.Records)))
	return nil
}

// Delete drops the entry for tracePath, if any.
func (c *FileCache) Delete(tracePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.memoryCache, cacheKey(tracePath))
	if err := os.Remove(c.entryPath(tracePath)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]*IndexEntry)

	return filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			os.Remove(path)
		}
		return nil
	})
}

// GetCacheStats counts entries held in memory and on disk.
func (c *FileCache) GetCacheStats() (memoryCount, fileCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	memoryCount = len(c.memoryCache)
	filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(path), ".json") {
			fileCount++
		}
		return nil
	})
	return memoryCount, fileCount
}
