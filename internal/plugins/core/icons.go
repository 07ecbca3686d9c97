package core

import (
	"archive/zip"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/samber/lo"
)

// maxIconSize bounds the width and height of imported png icons.
const maxIconSize = 256

// maxSVGSize bounds a single imported svg file.
const maxSVGSize = 1 << 20

var iconNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// iconFormats in lookup priority.
var iconFormats = []string{"svg", "png"}

// Icons is the icon library of the plugin below {data}/icons/{svg,png}.
type Icons struct {
	root string
}

func NewIcons(root string) *Icons {
	return &Icons{root: root}
}

// ImportStats counts the icons taken from an upload.
type ImportStats struct {
	PNG int
	SVG int
}

func (s ImportStats) Total() int { return s.PNG + s.SVG }

// Names returns the sorted names of every icon.
func (i *Icons) Names() ([]string, error) {
	var names []string
	for _, format := range iconFormats {
		entries, err := os.ReadDir(filepath.Join(i.root, format))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			name, ext, ok := strings.Cut(e.Name(), ".")
			if ok && ext == format && !e.IsDir() {
				names = append(names, name)
			}
		}
	}
	names = lo.Uniq(names)
	slices.Sort(names)
	return names, nil
}

// Path returns the file of the named icon, preferring svg over png.
func (i *Icons) Path(name string) (string, bool) {
	if !iconNameRe.MatchString(name) {
		return "", false
	}
	for _, format := range iconFormats {
		path := filepath.Join(i.root, format, name+"."+format)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Exists reports whether the named icon is present.
func (i *Icons) Exists(name string) bool {
	_, ok := i.Path(name)
	return ok
}

// ImportZip copies the icons of a zip archive holding png/ and svg/ folders
// into the library. PNG icons larger than maxIconSize are scaled down. Other
// entries are ignored.
func (i *Icons) ImportZip(path string) (ImportStats, error) {
	var stats ImportStats

	// non-local names are rejected per entry below
	zr, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return stats, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, format := range iconFormats {
		if err := os.MkdirAll(filepath.Join(i.root, format), 0o750); err != nil {
			return stats, err
		}
	}

	for _, f := range zr.File {
		format, name, ok := iconEntry(f)
		if !ok {
			continue
		}
		dst := filepath.Join(i.root, format, name+"."+format)
		switch format {
		case "svg":
			err = copySVG(f, dst)
		case "png":
			err = copyPNG(f, dst)
		}
		if err != nil {
			log.Warn("skipping icon", "entry", f.Name, "error", err)
			continue
		}
		if format == "svg" {
			stats.SVG++
		} else {
			stats.PNG++
		}
	}
	log.Info("imported icons", "png", stats.PNG, "svg", stats.SVG)
	return stats, nil
}

// iconEntry accepts "png/{name}.png" and "svg/{name}.svg" entries only.
func iconEntry(f *zip.File) (format, name string, ok bool) {
	if f.FileInfo().IsDir() {
		return "", "", false
	}
	dir, file, found := strings.Cut(f.Name, "/")
	if !found || !slices.Contains(iconFormats, dir) {
		return "", "", false
	}
	name, ext, found := strings.Cut(file, ".")
	if !found || ext != dir || !iconNameRe.MatchString(name) {
		return "", "", false
	}
	return dir, name, true
}

func copySVG(f *zip.File, dst string) error {
	if f.UncompressedSize64 > maxSVGSize {
		return fmt.Errorf("svg larger than %d bytes", maxSVGSize)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(rc, maxSVGSize)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyPNG(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	img, err := imaging.Decode(rc)
	if err != nil {
		return fmt.Errorf("failed to decode png: %w", err)
	}
	img = fitIcon(img)
	return imaging.Save(img, dst, imaging.PNGCompressionLevel(6))
}

func fitIcon(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxIconSize && b.Dy() <= maxIconSize {
		return img
	}
	return imaging.Fit(img, maxIconSize, maxIconSize, imaging.Lanczos)
}
