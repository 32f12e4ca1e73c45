package domain

import "time"

// DatasetMeta describes a stored upload without its content.
type DatasetMeta struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	Checksum   string    `json:"checksum"`
	SheetCount int       `json:"sheet_count"`
	RowCount   int       `json:"row_count"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dataset is a stored upload with its normalized content.
type Dataset struct {
	DatasetMeta
	Data *ResultData `json:"data"`
}

// RawFile is the uploaded file as received.
type RawFile struct {
	Name    string
	Content []byte
}
