package core

import "pkt.systems/gridmux/schema"

// Layout maps a session count to a grid arrangement. Counts above twelve are
// a caller error; the workspace enforces the pane limit before calling.
// Counts outside {1, 2, 4, 6, 9, 12} leave trailing cells empty.
func Layout(n int) schema.GridLayout {
	switch {
	case n <= 1:
		return schema.GridLayout{Cols: 1, Rows: 1}
	case n == 2:
		return schema.GridLayout{Cols: 2, Rows: 1}
	case n <= 4:
		return schema.GridLayout{Cols: 2, Rows: 2}
	case n <= 6:
		return schema.GridLayout{Cols: 3, Rows: 2}
	case n <= 9:
		return schema.GridLayout{Cols: 3, Rows: 3}
	default:
		return schema.GridLayout{Cols: 4, Rows: 3}
	}
}
