package badger

// Key prefixes for the standards collections.
const (
	sectionPrefix    = "sec"
	objectPrefix     = "obj"
	referencePrefix  = "ref"
	precedencePrefix = "prec"
	symbolPrefix     = "sym"
	documentPrefix   = "doc"
	vectorPrefix     = "vec"
)

func makeKey(prefix, id string) []byte {
	buf := make([]byte, 0, len(prefix)+1+len(id))
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	buf = append(buf, id...)
	return buf
}

func makeScanPrefix(prefix string) []byte {
	return []byte(prefix + ":")
}
