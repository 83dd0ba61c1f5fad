package components

import "strconv"

// AllowedLines lists the 23 output-line offsets wired to the kiosk's D-SUB
// connector, ordered L1 through L23. Components may only map to one of these.
var AllowedLines = []int{
	2,  // L1
	3,  // L2
	4,  // L3
	17, // L4
	27, // L5
	22, // L6
	10, // L7
	9,  // L8
	11, // L9
	0,  // L10
	5,  // L11
	6,  // L12
	13, // L13
	19, // L14
	26, // L15
	21, // L16
	20, // L17
	16, // L18
	12, // L19
	1,  // L20
	7,  // L21
	8,  // L22
	25, // L23
}

var lineLabels = buildLineLabels()

func buildLineLabels() map[int]string {
	labels := make(map[int]string, len(AllowedLines))
	for idx, offset := range AllowedLines {
		labels[offset] = "L" + strconv.Itoa(idx+1)
	}
	return labels
}

// LineAllowed reports whether offset belongs to the permitted output set.
func LineAllowed(offset int) bool {
	_, ok := lineLabels[offset]
	return ok
}

// LineLabel returns the connector label (L1…L23) for an allowed offset, or
// the empty string for anything else.
func LineLabel(offset int) string {
	return lineLabels[offset]
}
