package compliance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/goccy/go-json"

	"github.com/aretw0/csdlc/pkg/domain"
)

// cacheKey hashes the active configuration, the document name and its
// content. Relative references resolve against the name, and a changed rule
// set never serves a stale verdict.
func (v *Validator) cacheKey(name string, content []byte) string {
	if v.cache == nil {
		return ""
	}
	h := sha256.New()
	cfg, _ := json.Marshal(v.cfg)
	h.Write(cfg)
	h.Write([]byte{0})
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (v *Validator) lookup(ctx context.Context, key string) (*Result, bool) {
	if v.cache == nil || key == "" {
		return nil, false
	}
	data, err := v.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			v.logger.Warn("result cache lookup failed", "err", err)
		}
		v.recordCache(false)
		return nil, false
	}
	res, err := DecodeResult(data)
	if err != nil {
		v.logger.Warn("discarding undecodable cached result", "key", key, "err", err)
		_ = v.cache.Delete(ctx, key)
		v.recordCache(false)
		return nil, false
	}
	v.recordCache(true)
	return res, true
}

func (v *Validator) store(ctx context.Context, key string, res *Result) {
	if v.cache == nil {
		return
	}
	data, err := res.Encode()
	if err != nil {
		v.logger.Warn("failed to encode result for cache", "err", err)
		return
	}
	if err := v.cache.Set(ctx, key, data); err != nil {
		v.logger.Warn("failed to store result in cache", "err", err)
	}
}

func (v *Validator) recordCache(hit bool) {
	if v.recorder != nil {
		v.recorder.CacheLookup(hit)
	}
}
