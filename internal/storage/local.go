package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"nexbid/internal/domain"
)

const URLPrefix = "/uploads/"

// 允许的交付物类型，按嗅探结果精确匹配（html 等 text/plain 子类型不放行）
var allowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/jpeg",
	"image/png",
	"image/gif",
	"application/zip",
	"application/x-zip-compressed",
}

const errInvalidType = "Invalid file type. Allowed types: PDF, DOC, DOCX, TXT, JPG, PNG, GIF, ZIP"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

type StoredFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
}

// LocalStore 交付物落在本地目录，由 /uploads 静态路由对外提供
type LocalStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewLocal(dir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// Save 嗅探内容类型、限制大小后写盘；失败时不留下文件
func (s *LocalStore) Save(projectID, originalName string, r io.Reader) (*StoredFile, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, domain.Validation("Uploaded file is empty")
	}
	mt, ok := allowed(mimetype.Detect(head))
	if !ok {
		return nil, domain.Validation(errInvalidType)
	}

	name := StoredName(s.now(), projectID, originalName, mt.Extension())
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	src := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxBytes+1)
	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > s.maxBytes {
		err = domain.Validation(fmt.Sprintf("File too large. Maximum size is %dMB", s.maxBytes>>20))
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &StoredFile{
		Filename:     name,
		OriginalName: originalName,
		Size:         written,
		MimeType:     mt.String(),
		URL:          URLPrefix + name,
	}, nil
}

// Remove 文件不存在不算错误
func (s *LocalStore) Remove(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("remove upload: invalid name %q", filename)
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Sweep 删除不在 keep 中且超过 grace 的文件，返回删除的文件名
func (s *LocalStore) Sweep(keep map[string]struct{}, grace time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-grace)
	var removed []string
	var errs []error
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := keep[e.Name()]; ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, e.Name())
	}
	return removed, errors.Join(errs...)
}

// StoredName <unix毫秒>-<projectId>-<清洗后的文件名><扩展名>
func StoredName(now time.Time, projectID, originalName, fallbackExt string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ext = "." + unsafeChars.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
	if ext == "." {
		ext = fallbackExt
	}
	stem = unsafeChars.ReplaceAllString(stem, "_")
	if stem == "" || stem == "_" {
		stem = "file"
	}
	return fmt.Sprintf("%d-%s-%s%s", now.UnixMilli(), projectID, stem, ext)
}

func allowed(mt *mimetype.MIME) (*mimetype.MIME, bool) {
	for _, a := range allowedTypes {
		if mt.Is(a) {
			return mt, true
		}
	}
	return mt, false
}
