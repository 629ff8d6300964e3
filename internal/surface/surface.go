package surface

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/draw"
)

var ErrNotLocked = errors.New("surface not locked")

// Memory is a fixed-size canvas that keeps the last posted frame.
type Memory struct {
	mu     sync.Mutex
	canvas *image.RGBA
	frame  *image.RGBA
	locked bool
	posted int
}

func NewMemory(width, height int) *Memory {
	return &Memory{
		canvas: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (m *Memory) Lock() (draw.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locked = true
	return m.canvas, nil
}

func (m *Memory) Unlock(canvas draw.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		return ErrNotLocked
	}
	m.locked = false

	frame := image.NewRGBA(m.canvas.Bounds())
	draw.Draw(frame, frame.Bounds(), m.canvas, m.canvas.Bounds().Min, draw.Src)
	m.frame = frame
	m.posted++

	return nil
}

// Frame returns the last posted frame, nil when nothing was posted.
func (m *Memory) Frame() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

func (m *Memory) Posted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posted
}

// PNG writes every posted frame to a PNG file.
type PNG struct {
	*Memory
	filePath string
}

func NewPNG(filePath string, width, height int) PNG {
	return PNG{
		Memory:   NewMemory(width, height),
		filePath: filePath,
	}
}

func (p PNG) FilePath() string {
	return p.filePath
}

func (p PNG) Unlock(canvas draw.Image) error {
	if err := p.Memory.Unlock(canvas); err != nil {
		return err
	}

	return writePNG(p.filePath, p.Frame())
}

// writePNG writes img to a temporary file next to filePath and renames it
// over filePath.
func writePNG(filePath string, img image.Image) error {
	file, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	filePathTmp := file.Name()

	if err := png.Encode(file, img); err != nil {
		file.Close()
		os.Remove(filePathTmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(filePathTmp)
		return err
	}

	return os.Rename(filePathTmp, filePath)
}
