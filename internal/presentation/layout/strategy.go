package layout

// Region is a rectangle of terminal cells. A zero Width or Height means the
// region is not shown.
type Region struct {
	X, Y          int
	Width, Height int
}

// Visible reports whether the region occupies any cells.
func (r Region) Visible() bool { return r.Width > 0 && r.Height > 0 }

// Screen is the arrangement of every viewer region.
type Screen struct {
	Width, Height int
	Header        Region
	Labels        Region
	Timeline      Region
	Detail        Region
	Status        Region
}

// Params carries the view state that affects the arrangement.
type Params struct {
	ShowDetail  bool
	DetailLines int
	LabelWidth  int
}

// LayoutStrategy arranges the viewer regions for a terminal size.
type LayoutStrategy interface {
	Arrange(width, height int, p Params) Screen
	GetName() string
}

// GetLayoutStrategy returns the strategy for a layout style: 0 full, 1 minimal.
func GetLayoutStrategy(layoutStyle int) LayoutStrategy {
	strategies := map[int]LayoutStrategy{
		0: &FullLayoutStrategy{},
		1: &MinimalLayoutStrategy{},
	}

	if strategy, exists := strategies[layoutStyle]; exists {
		return strategy
	}

	return &FullLayoutStrategy{}
}
