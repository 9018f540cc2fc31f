package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/storage"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	fileMode  = 0o600
	dirMode   = 0o700
	nonceSize = 24
)

var _ storage.Store = (*FileStore)(nil)

// FileStore keeps all keys in a single file, rewritten atomically on every
// change. When a key is configured the file is sealed with NaCl secretbox.
type FileStore struct {
	path   string
	key    *[32]byte
	values map[string]string
	lock   sync.RWMutex
}

type Option func(*FileStore)

// WithKey enables encryption at rest.
func WithKey(key [32]byte) Option {
	return func(fs *FileStore) {
		k := key
		fs.key = &k
	}
}

// ParseKey decodes a 64 character hex string into a secretbox key.
func ParseKey(hexKey string) ([32]byte, error) {
	var key [32]byte
	b, err := hex.DecodeString(hexKey)
	if err != nil {
		return key, clienterrors.Wrapf(err, "[filestore.ParseKey] decode")
	}
	if len(b) != len(key) {
		return key, clienterrors.ErrStorageKeyInvalid
	}
	copy(key[:], b)
	return key, nil
}

// Open loads path, creating an empty store when the file does not exist yet.
func Open(path string, options ...Option) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		values: make(map[string]string),
	}
	for _, opt := range options {
		opt(fs)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, clienterrors.Wrapf(err, "[filestore.Open] read %s", path)
	}
	if len(data) == 0 {
		return fs, nil
	}

	plain, err := fs.open(data)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plain, &fs.values); err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrStorageCorrupted, "[filestore.Open] decode %s: %v", path, err)
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	value, ok := fs.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.values[key] = value
	return fs.flush()
}

func (fs *FileStore) Delete(keys ...string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	changed := false
	for _, k := range keys {
		if _, ok := fs.values[k]; ok {
			delete(fs.values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return fs.flush()
}

// Path returns the backing file.
func (fs *FileStore) Path() string {
	return fs.path
}

// flush must be called with the write lock held.
func (fs *FileStore) flush() error {
	plain, err := json.Marshal(fs.values)
	if err != nil {
		return clienterrors.Wrapf(err, "[FileStore.flush] encode")
	}
	data, err := fs.seal(plain)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), dirMode); err != nil {
		return clienterrors.Wrapf(err, "[FileStore.flush] mkdir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return clienterrors.Wrapf(err, "[FileStore.flush] create temp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return clienterrors.Wrapf(err, "[FileStore.flush] write")
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return clienterrors.Wrapf(err, "[FileStore.flush] chmod")
	}
	if err := tmp.Close(); err != nil {
		return clienterrors.Wrapf(err, "[FileStore.flush] close")
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return clienterrors.Wrapf(err, "[FileStore.flush] rename")
	}
	return nil
}

func (fs *FileStore) seal(plain []byte) ([]byte, error) {
	if fs.key == nil {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, clienterrors.Wrapf(err, "[FileStore.seal] nonce")
	}
	return secretbox.Seal(nonce[:], plain, &nonce, fs.key), nil
}

func (fs *FileStore) open(data []byte) ([]byte, error) {
	if fs.key == nil {
		return data, nil
	}
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("[FileStore.open] %w: file too short", clienterrors.ErrStorageCorrupted)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, fs.key)
	if !ok {
		return nil, fmt.Errorf("[FileStore.open] %w: cannot decrypt", clienterrors.ErrStorageCorrupted)
	}
	return plain, nil
}
