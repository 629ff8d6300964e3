package collage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Order is the order images are drawn from a folder.
type Order string

const (
	// OrderName sorts by file name.
	OrderName Order = "name"
	// OrderModTime sorts oldest first, then by file name.
	OrderModTime Order = "modtime"
	// OrderDirectory keeps whatever order the directory enumeration yields.
	OrderDirectory Order = "directory"
)

func ParseOrder(s string) (Order, error) {
	switch o := Order(s); o {
	case "":
		return OrderName, nil
	case OrderName, OrderModTime, OrderDirectory:
		return o, nil
	default:
		return "", fmt.Errorf("invalid order: %s", s)
	}
}

var imageExtensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}

// IsImage reports whether the file name has a decodable image extension.
func IsImage(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}

type Entry struct {
	Path    string
	Name    string
	ModTime time.Time
}

// Decoder turns an entry into pixels.
type Decoder interface {
	Decode(ctx context.Context, entry Entry) (image.Image, error)
}

type DecoderFunc func(ctx context.Context, entry Entry) (image.Image, error)

func (fn DecoderFunc) Decode(ctx context.Context, entry Entry) (image.Image, error) {
	return fn(ctx, entry)
}

// Dir lists and decodes the images of one folder.
type Dir struct {
	Order Order
}

func NewDir(order Order) Dir {
	return Dir{
		Order: order,
	}
}

// List returns the images in folder. Subdirectories, hidden files and files
// without an image extension are skipped.
func (d Dir) List(ctx context.Context, folder string) ([]Entry, error) {
	f, err := os.Open(folder)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := de.Name()
		if strings.HasPrefix(name, ".") || !IsImage(name) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		entries = append(entries, Entry{
			Path:    filepath.Join(folder, name),
			Name:    name,
			ModTime: info.ModTime(),
		})
	}

	switch d.Order {
	case OrderDirectory:
	case OrderModTime:
		slices.SortStableFunc(entries, func(a, b Entry) int {
			if c := a.ModTime.Compare(b.ModTime); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		})
	default:
		slices.SortFunc(entries, func(a, b Entry) int {
			return strings.Compare(a.Name, b.Name)
		})
	}

	return entries, nil
}

func (d Dir) Decode(ctx context.Context, entry Entry) (image.Image, error) {
	f, err := os.Open(entry.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	return img, nil
}
