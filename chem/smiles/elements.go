package smiles

// elements lists the symbols accepted inside brackets.
var elements = map[string]int{}

func init() {
	symbols := []string{
		"H", "He",
		"Li", "Be", "B", "C", "N", "O", "F", "Ne",
		"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
		"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
		"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
		"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
		"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
		"Fr", "Ra", "Ac", "Th", "Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md", "No", "Lr",
		"Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
	}
	for i, s := range symbols {
		elements[s] = i + 1
	}
}

// AtomicNumber returns the atomic number for symbol, or 0 for the
// wildcard and unknown symbols.
func AtomicNumber(symbol string) int {
	return elements[symbol]
}

// organicValences holds the default valences of the organic subset.
var organicValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// aromaticSymbols are the lowercase symbols allowed for aromatic atoms.
var aromaticSymbols = map[string]string{
	"b":  "B",
	"c":  "C",
	"n":  "N",
	"o":  "O",
	"p":  "P",
	"s":  "S",
	"se": "Se",
	"as": "As",
	"te": "Te",
}

// maxValence returns the largest allowed valence of an atom with the
// given symbol and formal charge. ok is false for elements whose valence
// is not checked.
func maxValence(symbol string, charge int) (v int, ok bool) {
	switch symbol {
	case "H":
		return 1 - abs(charge), true
	case "B":
		return 3 - charge, true
	case "C", "Si":
		return 4 - abs(charge), true
	case "N", "P", "As":
		if symbol == "N" {
			return 3 + charge, true
		}
		return 5 + charge, true
	case "O", "Se", "Te":
		if symbol == "O" {
			return 2 + charge, true
		}
		return 6 + charge, true
	case "S":
		return 6 + charge, true
	case "F", "Cl", "Br":
		return 1 + charge, true
	case "I":
		return 5 + charge, true
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
