package catalog

// Family groups boards that share a carrier layout and therefore pin routing.
type Family uint8

const (
	FamilyDefault Family = iota
	FamilyLime
	FamilyLime2
	FamilyMicro
	FamilySOM
	FamilySOM204
)

func (f Family) String() string {
	switch f {
	case FamilyLime:
		return "lime"
	case FamilyLime2:
		return "lime2"
	case FamilyMicro:
		return "micro"
	case FamilySOM:
		return "som"
	case FamilySOM204:
		return "som204"
	default:
		return "default"
	}
}

// FormFactor is the coarse board class.
func (f Family) FormFactor() string {
	switch f {
	case FamilyLime, FamilyLime2:
		return "compact"
	case FamilyMicro:
		return "full-size"
	case FamilySOM:
		return "system-on-module"
	case FamilySOM204:
		return "system-on-module-204-pin"
	default:
		return "default"
	}
}

// Classify maps a board id to its family. Unknown ids are FamilyDefault.
func Classify(id uint32) Family {
	switch id {
	case 4614, 8832, 9042, 8661, 8828, 4615, 8918, 9231,
		9223, 9235, 9227:
		return FamilyMicro
	case 7739, 7743, 8934, 9076,
		9211, 9215, 9219:
		return FamilyLime
	case 7701, 8340, 9166, 7624, 8910, 8946,
		9239, 9247, 9243:
		return FamilyLime2
	case 4673, 7664, 8849, 8922, 9155, 9148,
		9259:
		return FamilySOM
	case 8991, 8958:
		return FamilySOM204
	default:
		return FamilyDefault
	}
}
