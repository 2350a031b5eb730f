// Package instanceselect walks a set of root directories to build a flat
// pool of problem-instance file paths and draws a uniformly random one for
// each task, wrapped as a parameter Assignment keyed by the configured
// instance variable name.
package instanceselect

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourorg/paramsearch/internal/errors"
	"github.com/yourorg/paramsearch/internal/mctsparam"
)

// Selector holds the flattened pool of instance paths discovered under a
// set of root directories.
type Selector struct {
	variable  string
	instances []string

	mu   sync.Mutex
	rand *rand.Rand
}

// New walks every root directory (following symlinks) and collects every
// regular file found beneath it into the instance pool. variable names the
// scenario parameter that instance paths are assigned to. When abspath is
// true, every collected path is converted to an absolute path before being
// stored. An unreadable root or a broken walk raises an InstanceError
// naming the offending path.
func New(roots []string, variable string, abspath bool) (*Selector, error) {
	var instances []string

	for _, root := range roots {
		found, err := walk(root, abspath)
		if err != nil {
			return nil, err
		}
		instances = append(instances, found...)
	}

	return &Selector{
		variable:  variable,
		instances: instances,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Seed reseeds the selector's random source, mirroring mctstree.Seed so a
// scenario's configured seed covers instance draws the same way it covers
// rollout and selection; without this, a seeded search would be
// reproducible except for which instance every run picked.
func (s *Selector) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rand = rand.New(rand.NewSource(seed))
}

func walk(root string, abspath bool) ([]string, error) {
	var instances []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.InstanceError(path, err)
		}
		if info.IsDir() {
			return nil
		}
		if abspath {
			abs, err := filepath.Abs(path)
			if err != nil {
				return errors.InstanceError(path, err)
			}
			path = abs
		}
		instances = append(instances, path)
		return nil
	}

	if err := walkFollowingSymlinks(root, walkFn); err != nil {
		return nil, err
	}
	return instances, nil
}

// walkFollowingSymlinks is filepath.Walk, except a symlink encountered
// during the walk is resolved and descended into rather than reported as
// a leaf.
func walkFollowingSymlinks(root string, fn filepath.WalkFunc) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fn(root, nil, err)
	}
	return walkEntry(root, info, fn)
}

func walkEntry(path string, info os.FileInfo, fn filepath.WalkFunc) error {
	if info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fn(path, info, err)
		}
		real, err := os.Stat(resolved)
		if err != nil {
			return fn(path, info, err)
		}
		info = real
		path = resolved
	}

	if !info.IsDir() {
		return fn(path, info, nil)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fn(path, info, err)
	}
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		childInfo, err := entry.Info()
		if err != nil {
			if walkErr := fn(childPath, nil, err); walkErr != nil {
				return walkErr
			}
			continue
		}
		if err := walkEntry(childPath, childInfo, fn); err != nil {
			return err
		}
	}
	return nil
}

// Instances returns the full discovered instance pool.
func (s *Selector) Instances() []string {
	return s.instances
}

// Random returns a uniformly chosen instance path, or "" if the pool is
// empty.
func (s *Selector) Random() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.instances) == 0 {
		return ""
	}
	return s.instances[s.rand.Intn(len(s.instances))]
}

// RandomAssignment returns a random instance wrapped as an Assignment for
// the configured instance variable, so callers can append it directly to
// a node's full assignment set before rendering a callstring.
func (s *Selector) RandomAssignment() mctsparam.Assignment {
	return mctsparam.Assignment{Name: s.variable, Value: s.Random()}
}
