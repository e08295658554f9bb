package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"AuctionHarvester/internal/domain"
)

// column maps one merged listing field to its SQL value and scan target.
type column struct {
	name  string
	value func(*domain.Listing) any
	dest  func(*domain.Listing) any
}

// listingColumns are the merged columns, excluding id, slug and coordinates.
var listingColumns = []column{
	textColumn("numero_imovel", func(l *domain.Listing) *string { return &l.Number }),
	textColumn("hdn_imovel_id", func(l *domain.Listing) *string { return &l.HiddenID }),
	textColumn("title", func(l *domain.Listing) *string { return &l.Title }),
	textColumn("modalidade", func(l *domain.Listing) *string { return &l.Modality }),
	textColumn("tipo_imovel", func(l *domain.Listing) *string { return &l.PropertyType }),
	textColumn("description", func(l *domain.Listing) *string { return &l.Description }),
	textColumn("descricao_detalhada", func(l *domain.Listing) *string { return &l.DetailedDescription }),
	floatColumn("valor_avaliacao", func(l *domain.Listing) **float64 { return &l.AppraisalValue }),
	floatColumn("valor_venda_leilao_1", func(l *domain.Listing) **float64 { return &l.FirstAuctionMin }),
	floatColumn("valor_venda_leilao_2", func(l *domain.Listing) **float64 { return &l.SecondAuctionMin }),
	floatColumn("amount", func(l *domain.Listing) **float64 { return &l.Amount }),
	intColumn("quartos", func(l *domain.Listing) **int { return &l.Rooms }),
	intColumn("garagem", func(l *domain.Listing) **int { return &l.Garage }),
	floatColumn("area_total", func(l *domain.Listing) **float64 { return &l.TotalArea }),
	floatColumn("area_privativa", func(l *domain.Listing) **float64 { return &l.PrivateArea }),
	floatColumn("area_terreno", func(l *domain.Listing) **float64 { return &l.LandArea }),
	textColumn("matricula", func(l *domain.Listing) *string { return &l.Registry }),
	textColumn("comarca", func(l *domain.Listing) *string { return &l.Jurisdiction }),
	textColumn("oficio", func(l *domain.Listing) *string { return &l.RegistryOffice }),
	textColumn("inscricao_imobiliaria", func(l *domain.Listing) *string { return &l.Inscription }),
	textColumn("averbacao_leiloes_negativos", func(l *domain.Listing) *string { return &l.NegativeAuctionNote }),
	textColumn("situacao", func(l *domain.Listing) *string { return &l.Status }),
	textColumn("edital", func(l *domain.Listing) *string { return &l.Edital }),
	textColumn("numero_item", func(l *domain.Listing) *string { return &l.ItemNumber }),
	textColumn("leiloeiro", func(l *domain.Listing) *string { return &l.Auctioneer }),
	timeColumn("data_leilao_1", func(l *domain.Listing) **time.Time { return &l.FirstAuctionAt }),
	timeColumn("data_leilao_2", func(l *domain.Listing) **time.Time { return &l.SecondAuctionAt }),
	timeColumn("data_publicacao_edital", func(l *domain.Listing) **time.Time { return &l.EditalPublishedAt }),
	textColumn("formas_pagamento", func(l *domain.Listing) *string { return &l.PaymentTerms }),
	textColumn("regras_despesas", func(l *domain.Listing) *string { return &l.ExpenseRules }),
	textColumn("address", func(l *domain.Listing) *string { return &l.Address }),
	textColumn("cep", func(l *domain.Listing) *string { return &l.PostalCode }),
	textColumn("estado", func(l *domain.Listing) *string { return &l.State }),
	{
		name:  "fotos",
		value: func(l *domain.Listing) any { return photosValue(l.Photos) },
		dest:  func(l *domain.Listing) any { return photosDest{&l.Photos} },
	},
	textColumn("image_url", func(l *domain.Listing) *string { return &l.ImageURL }),
	textColumn("source_url", func(l *domain.Listing) *string { return &l.SourceURL }),
	textColumn("link_matricula", func(l *domain.Listing) *string { return &l.RegistryDocURL }),
	textColumn("link_edital", func(l *domain.Listing) *string { return &l.EditalURL }),
	textColumn("link_venda_online", func(l *domain.Listing) *string { return &l.OnlineSaleURL }),
	textColumn("link_formas_pagamento", func(l *domain.Listing) *string { return &l.PaymentTermsURL }),
	textColumn("site_leiloeiro", func(l *domain.Listing) *string { return &l.AuctioneerSiteURL }),
}

func textColumn(name string, field func(*domain.Listing) *string) column {
	return column{
		name: name,
		value: func(l *domain.Listing) any {
			if v := *field(l); v != "" {
				return v
			}
			return nil
		},
		dest: func(l *domain.Listing) any { return stringDest{field(l)} },
	}
}

func floatColumn(name string, field func(*domain.Listing) **float64) column {
	return column{
		name: name,
		value: func(l *domain.Listing) any {
			if v := *field(l); v != nil {
				return *v
			}
			return nil
		},
		dest: func(l *domain.Listing) any { return floatDest{field(l)} },
	}
}

func intColumn(name string, field func(*domain.Listing) **int) column {
	return column{
		name: name,
		value: func(l *domain.Listing) any {
			if v := *field(l); v != nil {
				return int64(*v)
			}
			return nil
		},
		dest: func(l *domain.Listing) any { return intDest{field(l)} },
	}
}

func timeColumn(name string, field func(*domain.Listing) **time.Time) column {
	return column{
		name: name,
		value: func(l *domain.Listing) any {
			if v := *field(l); v != nil {
				return *v
			}
			return nil
		},
		dest: func(l *domain.Listing) any { return timeDest{field(l)} },
	}
}

func photosValue(photos []string) any {
	if len(photos) == 0 {
		return nil
	}
	raw, err := json.Marshal(photos)
	if err != nil {
		return nil
	}
	return string(raw)
}

type stringDest struct{ dst *string }

func (d stringDest) Scan(src any) error {
	var v sql.NullString
	if err := v.Scan(src); err != nil {
		return err
	}
	*d.dst = v.String
	return nil
}

type floatDest struct{ dst **float64 }

func (d floatDest) Scan(src any) error {
	var v sql.NullFloat64
	if err := v.Scan(src); err != nil {
		return err
	}
	*d.dst = nil
	if v.Valid {
		*d.dst = &v.Float64
	}
	return nil
}

type intDest struct{ dst **int }

func (d intDest) Scan(src any) error {
	var v sql.NullInt64
	if err := v.Scan(src); err != nil {
		return err
	}
	*d.dst = nil
	if v.Valid {
		n := int(v.Int64)
		*d.dst = &n
	}
	return nil
}

type timeDest struct{ dst **time.Time }

func (d timeDest) Scan(src any) error {
	var v sql.NullTime
	if err := v.Scan(src); err != nil {
		return err
	}
	*d.dst = nil
	if v.Valid {
		*d.dst = &v.Time
	}
	return nil
}

type photosDest struct{ dst *[]string }

func (d photosDest) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d.dst = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("fotos: unsupported type %T", src)
	}
	var photos []string
	if err := json.Unmarshal(raw, &photos); err != nil {
		return fmt.Errorf("fotos: %w", err)
	}
	*d.dst = photos
	return nil
}
