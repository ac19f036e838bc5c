// Package pool provides buffer pooling to reduce allocations when encoding
// records.
//
// Usage:
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
//
//	enc := msgpack.NewEncoder(buf)
//	...
//	out := bytes.Clone(buf.Bytes()) // buf is reused after PutBuffer
package pool

import (
	"bytes"
	"sync"
)

// PoolConfig configures buffer pooling.
type PoolConfig struct {
	// Enabled controls whether pooling is active.
	Enabled bool

	// MaxBufferSize is the largest buffer capacity kept for reuse.
	MaxBufferSize int
}

var (
	configMu     sync.RWMutex
	globalConfig = PoolConfig{
		Enabled:       true,
		MaxBufferSize: 1 << 20,
	}
)

// Configure sets the global pool configuration.
func Configure(config PoolConfig) {
	configMu.Lock()
	globalConfig = config
	configMu.Unlock()
}

func currentConfig() PoolConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// IsEnabled reports whether pooling is active.
func IsEnabled() bool {
	return currentConfig().Enabled
}

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// GetBuffer returns an empty buffer.
func GetBuffer() *bytes.Buffer {
	if !IsEnabled() {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	}
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool. The caller must not use buf afterwards.
// Buffers grown past MaxBufferSize are dropped.
func PutBuffer(buf *bytes.Buffer) {
	cfg := currentConfig()
	if !cfg.Enabled || buf == nil || buf.Cap() > cfg.MaxBufferSize {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
