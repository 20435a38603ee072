package display

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

const (
	captionHeight = 20
	tilePadding   = 8
)

// SheetOptions configures a ContactSheet.
type SheetOptions struct {
	Columns    int
	TileWidth  int
	TileHeight int
	Background color.Color
	FontPath   string
}

// DefaultSheetOptions returns a 4-column layout of 240x180 tiles.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{
		Columns:    4,
		TileWidth:  240,
		TileHeight: 180,
		Background: color.RGBA{R: 24, G: 24, B: 24, A: 255},
	}
}

type tileKey struct {
	camera uint32
	stage  int
}

type tile struct {
	img   imagebuf.Image
	count int
}

// ContactSheet is a Displayer that keeps a copy of the latest output of
// every (camera, stage) pair and renders them as a grid.
type ContactSheet struct {
	renderer ports.Renderer
	opts     SheetOptions
	log      ports.Logger

	mu    sync.Mutex
	tiles map[tileKey]*tile
}

// NewContactSheet creates an empty sheet. Zero option fields take defaults.
func NewContactSheet(renderer ports.Renderer, opts SheetOptions, log ports.Logger) *ContactSheet {
	def := DefaultSheetOptions()
	if opts.Columns <= 0 {
		opts.Columns = def.Columns
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = def.TileWidth
	}
	if opts.TileHeight <= 0 {
		opts.TileHeight = opts.TileWidth * 3 / 4
	}
	if opts.Background == nil {
		opts.Background = def.Background
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &ContactSheet{
		renderer: renderer,
		opts:     opts,
		log:      log.WithComponent("display"),
		tiles:    make(map[tileKey]*tile),
	}
}

// Display copies the current view of img, replacing the previous output of
// the same camera and stage.
func (s *ContactSheet) Display(cameraID uint32, stage int, img *imagebuf.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := tileKey{cameraID, stage}
	t, ok := s.tiles[k]
	if !ok {
		t = &tile{}
		s.tiles[k] = t
	}
	if err := t.img.Reserve(len(img.Data())); err != nil {
		s.log.Debug("Cannot keep output of camera %d stage %d: %v", cameraID, stage, err)
		return
	}
	if err := t.img.Copy(img, imagebuf.CopyDeep); err != nil {
		s.log.Debug("Cannot keep output of camera %d stage %d: %v", cameraID, stage, err)
		return
	}
	t.count++
}

// Tiles returns the number of (camera, stage) pairs seen.
func (s *ContactSheet) Tiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiles)
}

// Render draws the grid ordered by camera then stage. Tiles whose format
// cannot be shown are left blank with their caption.
func (s *ContactSheet) Render() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tiles) == 0 {
		return nil, fmt.Errorf("contact sheet is empty")
	}
	keys := make([]tileKey, 0, len(s.tiles))
	for k := range s.tiles {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b tileKey) int {
		return cmp.Or(cmp.Compare(a.camera, b.camera), cmp.Compare(a.stage, b.stage))
	})

	cols := min(s.opts.Columns, len(keys))
	rows := (len(keys) + cols - 1) / cols
	cellW := s.opts.TileWidth + tilePadding
	cellH := s.opts.TileHeight + captionHeight + tilePadding
	canvas := s.renderer.CreateCanvas(cols*cellW+tilePadding, rows*cellH+tilePadding, s.opts.Background)

	style := ports.TextStyle{
		FontSize: 12,
		FontPath: s.opts.FontPath,
		Color:    color.White,
		Align:    ports.AlignCenter,
	}
	border := color.RGBA{R: 96, G: 96, B: 96, A: 255}

	for i, k := range keys {
		t := s.tiles[k]
		x := tilePadding + (i%cols)*cellW
		y := tilePadding + (i/cols)*cellH

		canvas.DrawRectStroke(x, y, s.opts.TileWidth, s.opts.TileHeight, border, 1)
		if view, err := s.renderer.FrameImage(&t.img); err == nil {
			w, h := fit(view.Bounds(), s.opts.TileWidth, s.opts.TileHeight)
			canvas.DrawImageScaled(view, x+(s.opts.TileWidth-w)/2, y+(s.opts.TileHeight-h)/2, w, h)
		} else {
			s.log.Debug("Cannot render camera %d stage %d: %v", k.camera, k.stage, err)
		}

		caption := fmt.Sprintf("cam %d / stage %d (%s, %d)", k.camera, k.stage, t.img.Format, t.count)
		canvas.DrawText(caption, x+s.opts.TileWidth/2, y+s.opts.TileHeight+captionHeight/2, style)
	}

	return canvas.ToImage(), nil
}

// fit scales b into a maxW x maxH box keeping its aspect ratio.
func fit(b image.Rectangle, maxW, maxH int) (int, int) {
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, 0
	}
	w, h := maxW, b.Dy()*maxW/b.Dx()
	if h > maxH {
		w, h = b.Dx()*maxH/b.Dy(), maxH
	}
	return max(w, 1), max(h, 1)
}

// Save renders the sheet as PNG to path.
func (s *ContactSheet) Save(fs ports.FileSystem, path string) error {
	img, err := s.Render()
	if err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	if err := fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write contact sheet: %w", err)
	}
	return nil
}

var _ ports.Displayer = (*ContactSheet)(nil)
