package address

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stateCodes = map[string]string{
	"ACRE": "AC", "ALAGOAS": "AL", "AMAPA": "AP", "AMAZONAS": "AM",
	"BAHIA": "BA", "CEARA": "CE", "DISTRITO FEDERAL": "DF", "ESPIRITO SANTO": "ES",
	"GOIAS": "GO", "MARANHAO": "MA", "MATO GROSSO": "MT", "MATO GROSSO DO SUL": "MS",
	"MINAS GERAIS": "MG", "PARA": "PA", "PARAIBA": "PB", "PARANA": "PR",
	"PERNAMBUCO": "PE", "PIAUI": "PI", "RIO DE JANEIRO": "RJ", "RIO GRANDE DO NORTE": "RN",
	"RIO GRANDE DO SUL": "RS", "RONDONIA": "RO", "RORAIMA": "RR", "SANTA CATARINA": "SC",
	"SAO PAULO": "SP", "SERGIPE": "SE", "TOCANTINS": "TO",
}

var stateSuffix = regexp.MustCompile(`-\s*([A-Z\sÁÉÍÓÚÂÊÔÇÃÕ]+)$`)

// StateCodes lists every two-letter UF, sorted.
func StateCodes() []string {
	return []string{
		"AC", "AL", "AM", "AP", "BA", "CE", "DF", "ES", "GO", "MA", "MG", "MS", "MT", "PA",
		"PB", "PE", "PI", "PR", "RJ", "RN", "RO", "RR", "RS", "SC", "SE", "SP", "TO",
	}
}

// StateCode extracts the trailing state segment of address and maps it to
// its UF. The second value is false when no segment was found or the name
// is unknown; the segment itself is returned for logging.
func StateCode(addr string) (code string, segment string, ok bool) {
	m := stateSuffix.FindStringSubmatch(strings.ToUpper(addr))
	if m == nil {
		return "", "", false
	}
	segment = strings.TrimSpace(m[1])
	code, ok = LookupState(segment)
	return code, segment, ok
}

// LookupState maps a state name, accented or not, or a UF to the UF.
func LookupState(name string) (string, bool) {
	key := strings.Join(strings.Fields(strings.ToUpper(fold(name))), " ")
	if code, ok := stateCodes[key]; ok {
		return code, true
	}
	if len(key) == 2 {
		for _, code := range stateCodes {
			if code == key {
				return code, true
			}
		}
	}
	return "", false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
