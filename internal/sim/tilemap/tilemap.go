package tilemap

// Map is the static walkability/speed grid for one zone map. It is read-only
// during simulation; the loading path is the only writer and never runs
// concurrently with a tick.
type Map struct {
	ID     string
	Width  int
	Height int

	// tiles holds one tile-type code per cell, row-major.
	tiles []int

	// Blocked tile-type codes shared across maps, plus an optional
	// map-specific wall code (NoWall when absent).
	blocked  map[int]bool
	wallCode int

	// Traversal-speed modifier (ms) per tile-type code; absent codes are 0.
	speed map[int]int

	SpawnX int
	SpawnY int

	// Placed objects keyed by packed tile key, plus the derived set of
	// object-blocked keys.
	objects       map[int][]string
	objectBlocked map[int]bool
}

// NoWall marks a map without a wall tile code.
const NoWall = -1

// Key packs a tile coordinate into a single int key. The scheme caps map
// height at 10000 tiles: y must stay below 10000 or keys collide.
func Key(x, y int) int { return 10000*x + y }

// New builds an empty map of the given size filled with tile code 0.
func New(id string, width, height int) *Map {
	return &Map{
		ID:            id,
		Width:         width,
		Height:        height,
		tiles:         make([]int, width*height),
		blocked:       make(map[int]bool),
		wallCode:      NoWall,
		speed:         make(map[int]int),
		objects:       make(map[int][]string),
		objectBlocked: make(map[int]bool),
	}
}

func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// TileAt returns the tile-type code at (x, y); out-of-bounds reads return
// the wall code so callers treat the outside as solid.
func (m *Map) TileAt(x, y int) int {
	if !m.InBounds(x, y) {
		return m.wallCode
	}
	return m.tiles[y*m.Width+x]
}

func (m *Map) SetTile(x, y, code int) {
	if m.InBounds(x, y) {
		m.tiles[y*m.Width+x] = code
	}
}

func (m *Map) SetWallCode(code int)  { m.wallCode = code }
func (m *Map) BlockCode(code int)    { m.blocked[code] = true }
func (m *Map) SetSpeed(code, ms int) { m.speed[code] = ms }
func (m *Map) SetSpawn(x, y int)     { m.SpawnX, m.SpawnY = x, y }

// Walkable reports whether a participant may occupy (x, y). It is a pure
// function of the tile code, the wall code and the object-blocked set.
func (m *Map) Walkable(x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	code := m.tiles[y*m.Width+x]
	if m.blocked[code] {
		return false
	}
	if m.wallCode != NoWall && code == m.wallCode {
		return false
	}
	if m.objectBlocked[Key(x, y)] {
		return false
	}
	return true
}

// SpeedModifierAt returns the traversal-speed modifier (ms) contributed by
// the tile at (x, y); 0 when the tile code has no entry.
func (m *Map) SpeedModifierAt(x, y int) int {
	return m.speed[m.TileAt(x, y)]
}

// PlaceObject records an object template on a tile. A blocking object adds
// the tile to the object-blocked set.
func (m *Map) PlaceObject(x, y int, templateID string, blocks bool) {
	if !m.InBounds(x, y) {
		return
	}
	k := Key(x, y)
	m.objects[k] = append(m.objects[k], templateID)
	if blocks {
		m.objectBlocked[k] = true
	}
}

// RemoveObject removes one instance of a template from a tile. The tile
// leaves the object-blocked set only when no objects remain on it; per-tile
// blocking is not tracked per template.
func (m *Map) RemoveObject(x, y int, templateID string) {
	k := Key(x, y)
	list := m.objects[k]
	for i, id := range list {
		if id == templateID {
			m.objects[k] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.objects[k]) == 0 {
		delete(m.objects, k)
		delete(m.objectBlocked, k)
	}
}

// ObjectsAt returns the object template ids placed on a tile.
func (m *Map) ObjectsAt(x, y int) []string {
	return m.objects[Key(x, y)]
}

// GenerateDefault builds a best-effort fallback map used when the map store
// cannot provide the requested one: open floor ringed by wall tiles.
func GenerateDefault(id string) *Map {
	const (
		size = 64
		wall = 1
	)
	m := New(id, size, size)
	m.SetWallCode(wall)
	for x := 0; x < size; x++ {
		m.SetTile(x, 0, wall)
		m.SetTile(x, size-1, wall)
	}
	for y := 0; y < size; y++ {
		m.SetTile(0, y, wall)
		m.SetTile(size-1, y, wall)
	}
	m.SetSpawn(size/2, size/2)
	return m
}
