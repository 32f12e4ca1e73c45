// Package schema describes the workbooks StockPulse accepts.
//
// A SchemaConfig lists, per category, the sheets a workbook must or may
// contain, the columns of each sheet with their aliases and value types,
// and ordered validation rules for each column. Matching of sheet names and
// headers is case-insensitive; when more than one declaration could match,
// the first one in declaration order wins.
//
// Schemas are plain data. They can be written to and read from YAML:
//
//	version: "1"
//	max_file_size: 104857600
//	processing_timeout: 5m
//	sheets:
//	  - name: FG value
//	    aliases: [Finished Goods Value]
//	    category: inventory
//	    columns:
//	      - name: Value
//	        type: number
//	        required: true
//	        rules:
//	          - kind: min
//	            bound: 0
//
// A Registry validates a schema once and hands out per-category copies.
package schema
