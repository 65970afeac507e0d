package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
)

// Collection is the decoded record array. Entries that are never replaced
// encode back to exactly the bytes they were decoded from.
type Collection struct {
	entries []entry
	changed bool
}

type entry struct {
	raw   json.RawMessage
	rec   medication.Record
	dirty bool
}

// Decode parses a stored blob. Empty input and JSON null are an empty collection.
func Decode(blob []byte) (*Collection, error) {
	c := &Collection{}
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return c, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	c.entries = make([]entry, 0, len(raws))
	for i, raw := range raws {
		var rec medication.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		c.entries = append(c.entries, entry{raw: raw, rec: rec})
	}
	return c, nil
}

// Encode serializes the collection, reusing original bytes for untouched entries.
func (c *Collection) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range c.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !e.dirty && e.raw != nil {
			buf.Write(e.raw)
			continue
		}
		data, err := json.Marshal(e.rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %q: %w", e.rec.ID, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.entries) }

// Changed reports whether any record was set, appended or removed since decoding.
func (c *Collection) Changed() bool { return c.changed }

// At returns a copy of the record at index i.
func (c *Collection) At(i int) medication.Record { return c.entries[i].rec }

// Raw returns the encoded form of entry i: the original bytes when untouched.
func (c *Collection) Raw(i int) (json.RawMessage, error) {
	e := c.entries[i]
	if !e.dirty && e.raw != nil {
		return e.raw, nil
	}
	return json.Marshal(e.rec)
}

// Records returns copies of all records in stored order.
func (c *Collection) Records() []medication.Record {
	out := make([]medication.Record, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.rec
	}
	return out
}

// IndexOf returns the index of the record with id, or -1.
func (c *Collection) IndexOf(id string) int {
	for i, e := range c.entries {
		if e.rec.ID == id {
			return i
		}
	}
	return -1
}

// Set replaces the record at index i and marks it for re-encoding.
func (c *Collection) Set(i int, rec medication.Record) {
	c.entries[i].rec = rec
	c.entries[i].dirty = true
	c.changed = true
}

// Append adds a record at the end.
func (c *Collection) Append(rec medication.Record) {
	c.entries = append(c.entries, entry{rec: rec, dirty: true})
	c.changed = true
}

// Remove deletes the record at index i, keeping the order of the rest.
func (c *Collection) Remove(i int) {
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	c.changed = true
}

// Load reads and decodes the collection under key.
// An absent key is an empty collection. Failures are STORAGE_READ_FAILURE.
func Load(ctx context.Context, a Adapter, key string) (*Collection, error) {
	blob, found, err := a.Load(ctx, key)
	if err != nil {
		return nil, errors.NewStorageRead(key, err)
	}
	if !found {
		return &Collection{}, nil
	}
	c, err := Decode(blob)
	if err != nil {
		return nil, errors.NewStorageRead(key, err)
	}
	return c, nil
}

// Save encodes and writes the whole collection under key.
// Failures are STORAGE_WRITE_FAILURE.
func Save(ctx context.Context, a Adapter, key string, c *Collection) error {
	blob, err := c.Encode()
	if err != nil {
		return errors.NewStorageWrite(key, err)
	}
	if err := a.Save(ctx, key, blob); err != nil {
		return errors.NewStorageWrite(key, err)
	}
	return nil
}
