package address

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		title string
		want  string
	}{
		{
			name: "number marker with city and state",
			raw:  "RUA A, N. 50, SAO PAULO - SAO PAULO",
			want: "RUA A - 50 - SAO PAULO - SAO PAULO",
		},
		{
			name: "lowercase input is uppercased",
			raw:  "Avenida Brasil, Nº 1200, Ribeirao Preto - Sao Paulo",
			want: "AVENIDA BRASIL - 1200 - RIBEIRAO PRETO - SAO PAULO",
		},
		{
			name: "comma number",
			raw:  "RUA DAS FLORES, 77, CAMPINAS - SAO PAULO",
			want: "RUA DAS FLORES - 77 - CAMPINAS - SAO PAULO",
		},
		{
			name: "no number keeps street city and state",
			raw:  "RUA SEM NUMERO, LOTE 3, CURITIBA - PARANA",
			want: "RUA SEM NUMERO - CURITIBA - PARANA",
		},
		{
			name:  "title fallback for city and state",
			raw:   "RUA B, 10",
			title: "Itaberaba - Bahia",
			want:  "RUA B - 10 - ITABERABA - BAHIA",
		},
		{
			name:  "title fallback with single segment",
			raw:   "ESTRADA VELHA",
			title: "Japaratuba",
			want:  "ESTRADA VELHA - JAPARATUBA",
		},
		{
			name:  "empty address",
			raw:   "",
			title: "Itaberaba - Bahia",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.raw, tc.title); got != tc.want {
				t.Fatalf("Normalize(%q, %q) = %q, want %q", tc.raw, tc.title, got, tc.want)
			}
		})
	}
}

func TestDecompose(t *testing.T) {
	t.Parallel()

	c := Decompose("Rua A, N° 50, Sao Paulo - Sao Paulo", "")
	if c.Street != "RUA A" || c.Number != "50" || c.City != "SAO PAULO" || c.State != "SAO PAULO" {
		t.Fatalf("unexpected components: %+v", c)
	}
}

func TestStateCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr   string
		want   string
		wantOK bool
	}{
		{"RUA X, 10 - CENTRO - JAPARATUBA - SERGIPE", "SE", true},
		{"Av. Paulista, 1000 - São Paulo", "SP", true},
		{"Rua Y, 5 - Goiânia - Goiás", "GO", true},
		{"Rua Z - Brasília - DF", "DF", true},
		{"Rua W - Atlantida", "", false},
		{"Rua sem estado", "", false},
	}

	for _, tc := range tests {
		got, _, ok := StateCode(tc.addr)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("StateCode(%q) = %q, %v; want %q, %v", tc.addr, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestStateCodesCoverMap(t *testing.T) {
	t.Parallel()

	codes := StateCodes()
	if len(codes) != len(stateCodes) {
		t.Fatalf("expected %d codes, got %d", len(stateCodes), len(codes))
	}
	for _, code := range codes {
		if got, ok := LookupState(code); !ok || got != code {
			t.Fatalf("LookupState(%q) = %q, %v", code, got, ok)
		}
	}
}
