// Package checkpoint serialises the MCTS run state (the non-callable
// parts of the configuration, the parameter registry, and the node
// store) to a file under the checkpoint directory. The wire format is gob,
// optionally gzip-wrapped; reading auto-detects compression by magic
// bytes the same way the program caller's cat sniffer does.
package checkpoint

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yourorg/paramsearch/internal/errors"
	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

var gzipMagic = []byte{0x1F, 0x8B}

// ConfigSnapshot is the subset of a Configuration that survives
// serialization: the callable resources (ProgramCaller, InstanceSelector)
// are process-local and are reconstructed by the caller from the scenario
// file, not from the checkpoint.
type ConfigSnapshot struct {
	InstanceVariable string
	Timeout          float64
}

// nodeDTO is the gob-serializable form of a mctstree.Node: children are
// referenced by key rather than by pointer, since gob does not preserve
// shared-pointer identity across an encode/decode round trip.
type nodeDTO struct {
	Key         string
	Assignments []mctsparam.Assignment
	Expanded    bool
	ChildKeys   []string
	Value       float64
	Visits      int
}

type paramDTO struct {
	Name       string
	Values     []string
	Conditions [][]mctsparam.Clause
}

type wireFormat struct {
	Config     ConfigSnapshot
	Parameters []paramDTO
	Nodes      []nodeDTO
	RootKey    string
}

// Mode selects how Load rehydrates state: Master restores the full
// parameter registry and node store; Executor needs neither.
type Mode int

const (
	Master Mode = iota
	Executor
)

// LoadResult is what Load returns: the restored ambient config, a
// registry/store (restored in Master mode; in Executor mode an empty
// registry and a new store holding only a fresh root), and
// the root node (nil in Executor mode, since executors never touch the
// tree).
type LoadResult struct {
	Config   ConfigSnapshot
	Registry *mctsparam.Registry
	Store    *mctstree.Store
	Root     *mctstree.Node
}

// Save writes cfg, every interned parameter in registry, and every
// interned node in store to a uniquely named file under dir, gzip-wrapped
// when compress is true. The write is atomic (temp file + rename).
func Save(dir string, compress bool, cfg ConfigSnapshot, registry *mctsparam.Registry, store *mctstree.Store) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.SaveError(dir, err)
	}

	wire := toWire(cfg, registry, store)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return "", errors.SaveError(dir, err)
	}

	name := "paramsearch-" + uuid.NewString() + ".save"
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", errors.SaveError(finalPath, err)
	}

	var writeErr error
	if compress {
		gz := gzip.NewWriter(f)
		_, writeErr = gz.Write(buf.Bytes())
		if closeErr := gz.Close(); writeErr == nil {
			writeErr = closeErr
		}
	} else {
		_, writeErr = f.Write(buf.Bytes())
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", errors.SaveError(finalPath, writeErr)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.SaveError(finalPath, err)
	}
	return finalPath, nil
}

// SaveTo behaves like Save but writes to an exact, caller-chosen path
// (used for the master's periodic same-named checkpoint file rather than
// a freshly uuid-named one each cycle).
func SaveTo(path string, compress bool, cfg ConfigSnapshot, registry *mctsparam.Registry, store *mctstree.Store) error {
	wire := toWire(cfg, registry, store)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return errors.SaveError(path, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.SaveError(path, err)
	}

	var writeErr error
	if compress {
		gz := gzip.NewWriter(f)
		_, writeErr = gz.Write(buf.Bytes())
		if closeErr := gz.Close(); writeErr == nil {
			writeErr = closeErr
		}
	} else {
		_, writeErr = f.Write(buf.Bytes())
	}
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return errors.SaveError(path, writeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.SaveError(path, err)
	}
	return nil
}

// Load reads path, auto-detecting gzip compression by magic bytes, and
// rehydrates state according to mode.
func Load(path string, mode Mode) (*LoadResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LoadError(path, err)
	}

	decoded, err := maybeDecompress(raw)
	if err != nil {
		return nil, errors.LoadError(path, err)
	}

	var wire wireFormat
	if err := gob.NewDecoder(bytes.NewReader(decoded)).Decode(&wire); err != nil {
		return nil, errors.LoadError(path, err)
	}

	result := &LoadResult{Config: wire.Config}

	if mode == Executor {
		result.Registry = mctsparam.NewRegistry()
		result.Store = mctstree.NewStore()
		return result, nil
	}

	result.Registry = fromWireParams(wire.Parameters)
	result.Store = fromWireNodes(wire.Nodes, wire.RootKey)
	result.Root = result.Store.Root()
	return result, nil
}

func maybeDecompress(raw []byte) ([]byte, error) {
	if len(raw) >= 2 && bytes.Equal(raw[:2], gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return raw, nil
}

func toWire(cfg ConfigSnapshot, registry *mctsparam.Registry, store *mctstree.Store) wireFormat {
	var params []paramDTO
	for _, p := range registry.All() {
		params = append(params, paramDTO{Name: p.Name, Values: p.Values, Conditions: p.Conditions})
	}

	nodes, rootKey := store.Snapshot()
	var dtos []nodeDTO
	for key, n := range nodes {
		var childKeys []string
		expanded := n.Expanded()
		if expanded {
			for _, c := range n.Children {
				childKeys = append(childKeys, c.Key())
			}
		}
		dtos = append(dtos, nodeDTO{
			Key:         key,
			Assignments: n.Assignments,
			Expanded:    expanded,
			ChildKeys:   childKeys,
			Value:       n.Value,
			Visits:      n.Visits,
		})
	}

	return wireFormat{Config: cfg, Parameters: params, Nodes: dtos, RootKey: rootKey}
}

func fromWireParams(params []paramDTO) *mctsparam.Registry {
	registry := mctsparam.NewRegistry()
	for _, p := range params {
		registry.Intern(&mctsparam.Parameter{Name: p.Name, Values: p.Values, Conditions: p.Conditions})
	}
	return registry
}

func fromWireNodes(dtos []nodeDTO, rootKey string) *mctstree.Store {
	nodes := make(map[string]*mctstree.Node, len(dtos))
	for _, dto := range dtos {
		nodes[dto.Key] = &mctstree.Node{
			Assignments: dto.Assignments,
			Value:       dto.Value,
			Visits:      dto.Visits,
		}
	}
	for _, dto := range dtos {
		if !dto.Expanded {
			continue
		}
		node := nodes[dto.Key]
		node.Children = make([]*mctstree.Node, 0, len(dto.ChildKeys))
		for _, ck := range dto.ChildKeys {
			node.Children = append(node.Children, nodes[ck])
		}
	}

	store := mctstree.NewStore()
	store.Replace(nodes, rootKey)
	return store
}
