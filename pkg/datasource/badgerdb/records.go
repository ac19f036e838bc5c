package badgerdb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/orneryd/nornicfed/pkg/catalog"
	"github.com/orneryd/nornicfed/pkg/pool"
	"github.com/orneryd/nornicfed/pkg/schema"
	"github.com/orneryd/nornicfed/pkg/storage"
)

// Key layout. Every graph owns one prefix for its entities plus a schema
// record; the schema record doubles as the graph's existence marker.
//
//	g:<graph>\x00n:<nodeID>  -> msgpack(storage.Node)
//	g:<graph>\x00e:<edgeID>  -> msgpack(storage.Edge)
//	s:<graph>                -> msgpack(schema.Schema)
const (
	graphTag  = "g:"
	schemaTag = "s:"
	nodeTag   = "n:"
	edgeTag   = "e:"
	separator = "\x00"
)

func validateName(name catalog.GraphName) error {
	if name == "" || strings.Contains(string(name), separator) {
		return fmt.Errorf("%w: %q", catalog.ErrInvalidGraphName, name)
	}
	return nil
}

func graphPrefix(name catalog.GraphName) []byte {
	return []byte(graphTag + string(name) + separator)
}

func nodePrefix(name catalog.GraphName) []byte {
	return append(graphPrefix(name), nodeTag...)
}

func edgePrefix(name catalog.GraphName) []byte {
	return append(graphPrefix(name), edgeTag...)
}

func nodeKey(name catalog.GraphName, id storage.NodeID) []byte {
	return append(nodePrefix(name), string(id)...)
}

func edgeKey(name catalog.GraphName, id storage.EdgeID) []byte {
	return append(edgePrefix(name), string(id)...)
}

func schemaKey(name catalog.GraphName) []byte {
	return []byte(schemaTag + string(name))
}

func graphNameFromSchemaKey(key []byte) catalog.GraphName {
	return catalog.GraphName(key[len(schemaTag):])
}

func encode(v any) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// decode uses loose interface decoding so property integers come back as
// int64 and floats as float64 regardless of their wire width.
func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func decodeNode(data []byte) (*storage.Node, error) {
	var n storage.Node
	if err := decode(data, &n); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &n, nil
}

func decodeEdge(data []byte) (*storage.Edge, error) {
	var e storage.Edge
	if err := decode(data, &e); err != nil {
		return nil, fmt.Errorf("decode edge: %w", err)
	}
	return &e, nil
}

func decodeSchema(data []byte) (*schema.Schema, error) {
	s := schema.New()
	if err := decode(data, s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return s, nil
}
