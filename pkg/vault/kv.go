package vault

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
)

// DefaultKVMount is the mount of the KV v2 engine used when none is configured.
const DefaultKVMount = "secret"

// DataPath returns the KV v2 data path for a logical secret path.
func DataPath(mount, p string) string {
	return path.Join(mountOrDefault(mount), "data", strings.Trim(p, "/"))
}

// MetadataPath returns the KV v2 metadata path for a logical secret path.
func MetadataPath(mount, p string) string {
	return path.Join(mountOrDefault(mount), "metadata", strings.Trim(p, "/"))
}

func mountOrDefault(mount string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		return DefaultKVMount
	}
	return mount
}

// ReadKV reads the latest version of a KV v2 document. A missing or deleted
// secret is reported as found=false with a nil error.
func (c *Client) ReadKV(ctx context.Context, mount, p string) (map[string]string, bool, error) {
	dataPath := DataPath(mount, p)
	secret, err := c.Logical().ReadWithContext(ctx, dataPath)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify(err, "read", p)
	}
	if secret == nil || secret.Data == nil {
		return nil, false, nil
	}

	// A soft-deleted version keeps its metadata but has no data.
	raw, ok := secret.Data["data"].(map[string]interface{})
	if !ok || raw == nil {
		return nil, false, nil
	}

	return flatten(raw), true, nil
}

// WriteKV writes a new version of a KV v2 document.
func (c *Client) WriteKV(ctx context.Context, mount, p string, doc map[string]string) error {
	data := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		data[k] = v
	}

	_, err := c.Logical().WriteWithContext(ctx, DataPath(mount, p), map[string]interface{}{
		"data": data,
	})
	if err != nil {
		return classify(err, "write", p)
	}
	return nil
}

// ListKV lists the keys under a KV v2 directory. Sub-directories end in "/".
// A missing directory yields an empty list.
func (c *Client) ListKV(ctx context.Context, mount, p string) ([]string, error) {
	secret, err := c.Logical().ListWithContext(ctx, MetadataPath(mount, p))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, classify(err, "list", p)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	rawKeys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(rawKeys))
	for _, k := range rawKeys {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteKV removes every version of a KV v2 document together with its
// metadata. Deleting a missing secret is not an error.
func (c *Client) DeleteKV(ctx context.Context, mount, p string) error {
	_, err := c.Logical().DeleteWithContext(ctx, MetadataPath(mount, p))
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return classify(err, "delete", p)
	}
	return nil
}

// flatten renders a decoded KV document as strings. Nil values are dropped.
func flatten(raw map[string]interface{}) map[string]string {
	doc := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			doc[k] = val
		default:
			doc[k] = fmt.Sprint(val)
		}
	}
	return doc
}
