package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// listingsTable matches the legacy Django table so existing databases can be
// reused as-is.
const listingsTable = "imoveis_imovel"

const createListingsTable = `
CREATE TABLE IF NOT EXISTS imoveis_imovel (
    id                          BIGSERIAL PRIMARY KEY,
    slug                        VARCHAR(255) NOT NULL UNIQUE,
    numero_imovel               VARCHAR(50),
    hdn_imovel_id               VARCHAR(50),
    title                       VARCHAR(255),
    modalidade                  VARCHAR(100),
    tipo_imovel                 VARCHAR(100),
    description                 TEXT,
    descricao_detalhada         TEXT,
    valor_avaliacao             DOUBLE PRECISION,
    valor_venda_leilao_1        DOUBLE PRECISION,
    valor_venda_leilao_2        DOUBLE PRECISION,
    amount                      DOUBLE PRECISION,
    quartos                     INTEGER,
    garagem                     INTEGER,
    area_total                  DOUBLE PRECISION,
    area_privativa              DOUBLE PRECISION,
    area_terreno                DOUBLE PRECISION,
    matricula                   VARCHAR(100),
    comarca                     VARCHAR(100),
    oficio                      VARCHAR(50),
    inscricao_imobiliaria       VARCHAR(100),
    averbacao_leiloes_negativos VARCHAR(100),
    situacao                    VARCHAR(100),
    edital                      VARCHAR(255),
    numero_item                 VARCHAR(50),
    leiloeiro                   VARCHAR(255),
    data_leilao_1               TIMESTAMPTZ,
    data_leilao_2               TIMESTAMPTZ,
    data_publicacao_edital      TIMESTAMPTZ,
    formas_pagamento            TEXT,
    regras_despesas             TEXT,
    address                     TEXT,
    cep                         VARCHAR(20),
    estado                      VARCHAR(2),
    fotos                       JSONB,
    image_url                   VARCHAR(200),
    source_url                  VARCHAR(200),
    link_matricula              VARCHAR(200),
    link_edital                 VARCHAR(200),
    link_venda_online           VARCHAR(200),
    link_formas_pagamento       VARCHAR(200),
    site_leiloeiro              VARCHAR(200),
    latitude                    DOUBLE PRECISION,
    longitude                   DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS imoveis_imovel_estado_idx ON imoveis_imovel (estado);
CREATE INDEX IF NOT EXISTS imoveis_imovel_missing_geo_idx ON imoveis_imovel (id) WHERE latitude IS NULL;
`

// Open connects through database/sql. driver "pgx" selects the pgx stdlib
// adapter; anything else uses lib/pq.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	name := "postgres"
	if strings.EqualFold(driver, "pgx") {
		name = "pgx"
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}
	return db, nil
}

// Migrate creates the listings table and its indexes when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createListingsTable); err != nil {
		return fmt.Errorf("migrate listings: %w", err)
	}
	return nil
}
