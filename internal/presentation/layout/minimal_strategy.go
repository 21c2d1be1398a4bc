package layout

// MinimalLayoutStrategy shows only the time ruler, the timeline and the
// status line.
type MinimalLayoutStrategy struct {
	BaseStrategy
}

func (s *MinimalLayoutStrategy) GetName() string {
	return "Minimal"
}

func (s *MinimalLayoutStrategy) Arrange(width, height int, _ Params) Screen {
	body := max(height-2, 1)
	return Screen{
		Width:    width,
		Height:   height,
		Header:   Region{Width: width, Height: 1},
		Timeline: Region{Y: 1, Width: width, Height: body},
		Status:   Region{Y: height - 1, Width: width, Height: 1},
	}
}
