package baduk

import "github.com/pkg/errors"

// Flood-fill helpers over single-instance planes. Points are row-major
// indices into a boardSize x boardSize grid.

func neighbours(b, p int, dst []int) []int {
	dst = dst[:0]
	i, j := p/b, p%b
	if i > 0 {
		dst = append(dst, p-b)
	}
	if i < b-1 {
		dst = append(dst, p+b)
	}
	if j > 0 {
		dst = append(dst, p-1)
	}
	if j < b-1 {
		dst = append(dst, p+1)
	}
	return dst
}

// groupWithoutLiberty collects the connected group of stone() points
// containing start. It returns nil as soon as a liberty is found: a point
// that is neither stone() nor blocked().
func groupWithoutLiberty(stone, blocked func(int) bool, b, start int) []int {
	visited := make([]bool, b*b)
	group := []int{start}
	visited[start] = true
	var adj [4]int
	for head := 0; head < len(group); head++ {
		for _, q := range neighbours(b, group[head], adj[:0]) {
			if visited[q] {
				continue
			}
			visited[q] = true
			switch {
			case stone(q):
				group = append(group, q)
			case !blocked(q):
				return nil
			}
		}
	}
	return group
}

// tryPlace checks that placing an own-colour stone at p is legal and
// returns the opponent stones it captures. No plane is mutated.
func tryPlace(own, opp []float32, b, p int, ko []float32) ([]int, error) {
	if own[p] != 0 || opp[p] != 0 {
		return nil, errors.New("point occupied")
	}
	if ko[p] != 0 {
		return nil, errors.New("point barred by ko")
	}

	oppStone := func(q int) bool { return opp[q] != 0 }
	ownWithP := func(q int) bool { return own[q] != 0 || q == p }

	var captures []int
	taken := make([]bool, b*b)
	var adj [4]int
	for _, q := range neighbours(b, p, adj[:0]) {
		if opp[q] == 0 || taken[q] {
			continue
		}
		if dead := groupWithoutLiberty(oppStone, ownWithP, b, q); dead != nil {
			for _, d := range dead {
				taken[d] = true
			}
			captures = append(captures, dead...)
		}
	}
	if len(captures) > 0 {
		return captures, nil
	}
	if dead := groupWithoutLiberty(ownWithP, oppStone, b, p); dead != nil {
		return nil, errors.New("suicide")
	}
	return nil, nil
}

// emptyRegion collects the empty region containing p and reports which
// colours border it. seen is shared across calls to avoid revisiting.
func emptyRegion(black, white []float32, b, p int, seen []bool) (region []int, touchBlack, touchWhite bool) {
	region = []int{p}
	seen[p] = true
	var adj [4]int
	for head := 0; head < len(region); head++ {
		for _, q := range neighbours(b, region[head], adj[:0]) {
			switch {
			case black[q] != 0:
				touchBlack = true
			case white[q] != 0:
				touchWhite = true
			case !seen[q]:
				seen[q] = true
				region = append(region, q)
			}
		}
	}
	return region, touchBlack, touchWhite
}

func isLoneStone(own []float32, b, p int) bool {
	var adj [4]int
	for _, q := range neighbours(b, p, adj[:0]) {
		if own[q] != 0 {
			return false
		}
	}
	return true
}
