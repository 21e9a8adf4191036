// Package jsonfile keeps devices in a single JSON document:
//
//	{"devices":[{"name":"Router1","address":"10.0.0.1","addedAt":"2024-05-01T10:00:00Z","refreshIntervalSeconds":5}]}
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/valyala/fastjson"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/storage"
)

const filePerm = 0o644

// Store implements storage.Store on top of a file.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ storage.Store = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Path of the underlying file.
func (s *Store) Path() string { return s.path }

// Load implements storage.Store.
func (s *Store) Load(ctx context.Context) ([]model.PersistedDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	return decode(data)
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", storage.ErrCorruptData, fmt.Sprintf(format, args...))
}

func decode(data []byte) ([]model.PersistedDevice, error) {
	var p fastjson.Parser

	root, err := p.ParseBytes(data)
	if err != nil {
		return nil, corrupt("parsing document: %v", err)
	}

	if root.Type() != fastjson.TypeObject {
		return nil, corrupt("document is %s, not an object", root.Type())
	}

	list := root.Get("devices")
	if list == nil || list.Type() == fastjson.TypeNull {
		return nil, nil
	}

	items, err := list.Array()
	if err != nil {
		return nil, corrupt("devices: %v", err)
	}

	devices := make([]model.PersistedDevice, 0, len(items))
	for i, item := range items {
		d, err := decodeDevice(item)
		if err != nil {
			return nil, corrupt("device #%d: %v", i, err)
		}

		devices = append(devices, d)
	}

	return devices, nil
}

func decodeDevice(v *fastjson.Value) (d model.PersistedDevice, err error) {
	if v.Type() != fastjson.TypeObject {
		return d, fmt.Errorf("is %s, not an object", v.Type())
	}

	name, err := stringField(v, "name")
	if err != nil {
		return d, err
	}

	address, err := stringField(v, "address")
	if err != nil {
		return d, err
	}

	addedAtText, err := stringField(v, "addedAt")
	if err != nil {
		return d, err
	}

	addedAt, err := time.Parse(time.RFC3339Nano, addedAtText)
	if err != nil {
		return d, fmt.Errorf("addedAt: %w", err)
	}

	intervalValue := v.Get("refreshIntervalSeconds")
	if intervalValue == nil {
		return d, errors.New("refreshIntervalSeconds is missing")
	}

	interval, err := intervalValue.Int()
	if err != nil {
		return d, fmt.Errorf("refreshIntervalSeconds: %w", err)
	}

	return model.PersistedDevice{
		Name:                   name,
		Address:                address,
		AddedAt:                addedAt,
		RefreshIntervalSeconds: interval,
	}, nil
}

func stringField(v *fastjson.Value, key string) (string, error) {
	field := v.Get(key)
	if field == nil {
		return "", fmt.Errorf("%s is missing", key)
	}

	b, err := field.StringBytes()
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}

	return string(b), nil
}

func encode(devices []model.PersistedDevice) []byte {
	var a fastjson.Arena

	list := a.NewArray()
	for i, d := range devices {
		item := a.NewObject()
		item.Set("name", a.NewString(d.Name))
		item.Set("address", a.NewString(d.Address))
		item.Set("addedAt", a.NewString(d.AddedAt.Format(time.RFC3339Nano)))
		item.Set("refreshIntervalSeconds", a.NewNumberInt(d.RefreshIntervalSeconds))
		list.SetArrayItem(i, item)
	}

	root := a.NewObject()
	root.Set("devices", list)

	return root.MarshalTo(nil)
}

// Save implements storage.Store. The file is replaced atomically.
func (s *Store) Save(ctx context.Context, devices []model.PersistedDevice) (err error) {
	if err = ctx.Err(); err != nil {
		return err
	}

	data := encode(devices)

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err = os.Chmod(tmp.Name(), filePerm); err != nil {
		return fmt.Errorf("changing mode: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	return nil
}
