package tilemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type mapFile struct {
	ID      string        `yaml:"id"`
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Wall    *int          `yaml:"wall"`
	Blocked []int         `yaml:"blocked"`
	Speed   map[int]int   `yaml:"speed"`
	Spawn   []int         `yaml:"spawn"`
	Tiles   [][]int       `yaml:"tiles"`
	Objects []objectEntry `yaml:"objects"`
}

type objectEntry struct {
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	Template string `yaml:"template"`
	Blocks   bool   `yaml:"blocks"`
}

// Load reads a single map definition from a yaml file.
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mf mapFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if mf.ID == "" {
		mf.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if mf.Width <= 0 || mf.Height <= 0 {
		return nil, fmt.Errorf("%s: bad dimensions %dx%d", mf.ID, mf.Width, mf.Height)
	}
	if mf.Height > 10000 {
		// Packed tile keys are 10000*x+y; taller maps would collide.
		return nil, fmt.Errorf("%s: height %d exceeds packed-key limit 10000", mf.ID, mf.Height)
	}
	if len(mf.Tiles) != mf.Height {
		return nil, fmt.Errorf("%s: expected %d tile rows, got %d", mf.ID, mf.Height, len(mf.Tiles))
	}

	m := New(mf.ID, mf.Width, mf.Height)
	if mf.Wall != nil {
		m.SetWallCode(*mf.Wall)
	}
	for _, code := range mf.Blocked {
		m.BlockCode(code)
	}
	for code, ms := range mf.Speed {
		m.SetSpeed(code, ms)
	}
	for y, row := range mf.Tiles {
		if len(row) != mf.Width {
			return nil, fmt.Errorf("%s: row %d has %d tiles, want %d", mf.ID, y, len(row), mf.Width)
		}
		for x, code := range row {
			m.SetTile(x, y, code)
		}
	}
	if len(mf.Spawn) == 2 {
		m.SetSpawn(mf.Spawn[0], mf.Spawn[1])
	}
	for _, obj := range mf.Objects {
		m.PlaceObject(obj.X, obj.Y, obj.Template, obj.Blocks)
	}
	return m, nil
}

// LoadDir reads every *.yaml map in a directory, keyed by map id.
func LoadDir(dir string) (map[string]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	maps := make(map[string]*Map, len(names))
	for _, name := range names {
		m, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		maps[m.ID] = m
	}
	return maps, nil
}
