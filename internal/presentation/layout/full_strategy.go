package layout

// FullLayoutStrategy shows a title line, a time ruler, thread labels, the
// timeline, an optional detail pane and a status line.
type FullLayoutStrategy struct {
	BaseStrategy
}

func (s *FullLayoutStrategy) GetName() string {
	return "Full"
}

func (s *FullLayoutStrategy) Arrange(width, height int, p Params) Screen {
	const headerH, statusH = 2, 1
	scr := Screen{Width: width, Height: height}

	body := max(height-headerH-statusH, 1)
	detailH := 0
	if p.ShowDetail {
		detailH = clampDetail(p.DetailLines, body)
	}
	labelW := p.LabelWidth
	if labelW <= 0 {
		labelW = DefaultLabelWidth
	}
	labelW = min(labelW, width/3)

	scr.Header = Region{Width: width, Height: headerH}
	scr.Labels = Region{Y: headerH, Width: labelW, Height: body - detailH}
	scr.Timeline = Region{X: labelW, Y: headerH, Width: width - labelW, Height: body - detailH}
	scr.Detail = Region{Y: headerH + body - detailH, Width: width, Height: detailH}
	scr.Status = Region{Y: height - statusH, Width: width, Height: statusH}
	return scr
}
