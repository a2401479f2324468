/*
	Exasol supports a bulk IMPORT-EXPORT API that utilizes the ETL
	tunneling subsystem (etl_*.go) for sending data files (usually csv)
	to/from the server.

	This is the fastest way to import/export data.

	We support 2 interfaces, Bulk and Stream.

	In the Bulk interface you provide/receive the entire dataset
	in a single byte buffer. This can be more convenient but it
	can cause memory issues if your dataset is too large.

	In the Stream interface you provide/receive a chan of byte slices.
	When writing it's recommended that you break up your dataset into
	slices of about 10KB.
	When reading you will receive a series of slices in the 10KB range
	which you will need to concatenate to form the full dataset.


	For each of the Bulk & Streaming interfaces there are 4 possible interactions:

	1) "Insert" is for inserting into a single table with the data provided
	   mapping directly into the table columns

 	2) "Execute" allows you to do a bulk data import for arbitrarily complex
	   INSERT or MERGE statements. The DML provided must include a "%s"
	   placeholder where the ETL tunnel's AT clause belongs, e.g.
	   "IMPORT INTO t FROM CSV AT '%s' FILE 'data.csv'".

	3) "Select" is for selecting out of a single table with the data received
	   mapping directly to the table's columns

	4) "Query" allows you to do a bulk data export from arbitrarily complex
   	   SELECT statements. The DQL provided must include a "%s" placeholder
	   the same way.

	AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import (
	"bytes"
	"fmt"
)

func (c *Conn) BulkInsert(schema, table string, data *bytes.Buffer) error {
	if data == nil {
		return &ConfigError{Msg: "BulkInsert requires a non-nil *bytes.Buffer"}
	}
	dataChan := make(chan []byte, 1)
	dataChan <- data.Bytes()
	close(dataChan)
	return c.StreamInsert(schema, table, dataChan)
}

func (c *Conn) BulkExecute(sqlTemplate string, data *bytes.Buffer) error {
	if data == nil {
		return &ConfigError{Msg: "BulkExecute requires a non-nil *bytes.Buffer"}
	}
	dataChan := make(chan []byte, 1)
	dataChan <- data.Bytes()
	close(dataChan)
	return c.StreamExecute(sqlTemplate, dataChan)
}

func (c *Conn) BulkSelect(schema, table string, data *bytes.Buffer) error {
	if data == nil {
		return &ConfigError{Msg: "BulkSelect requires a non-nil *bytes.Buffer"}
	}
	rows := c.StreamSelect(schema, table)
	for b := range rows.Data {
		data.Write(b)
	}
	return rows.Error
}

func (c *Conn) BulkQuery(sqlTemplate string, data *bytes.Buffer) error {
	if data == nil {
		return &ConfigError{Msg: "BulkQuery requires a non-nil *bytes.Buffer"}
	}
	rows := c.StreamQuery(sqlTemplate)
	for b := range rows.Data {
		data.Write(b)
	}
	return rows.Error
}

func (c *Conn) StreamInsert(schema, table string, data <-chan []byte) error {
	return c.StreamExecute(c.tableImportSQL(schema, table), data)
}

// StreamExecute dials a single ETL worker, substitutes its proxy URL into
// sqlTemplate's "%s" placeholder, and pumps data into it as the worker's
// chunked HTTP response body for the cluster to read.
func (c *Conn) StreamExecute(sqlTemplate string, data <-chan []byte) error {
	if data == nil {
		return &ConfigError{Msg: "StreamExecute requires a non-nil []byte chan"}
	}

	worker, wait, err := c.dialRawSingleWorker(EtlImport, sqlTemplate)
	if err != nil {
		return fmt.Errorf("unable to import data: %w", err)
	}

	pr, pw := newIOPipe()
	go func() {
		defer pw.Close()
		for b := range data {
			if _, err := pw.Write(b); err != nil {
				return
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		err := worker.serveImport(pr)
		pr.CloseWithError(err)
		worker.close()
		serveErr <- err
	}()

	if err := <-serveErr; err != nil {
		return fmt.Errorf("unable to import data: %w", err)
	}
	if err := wait(); err != nil {
		return fmt.Errorf("unable to import data: %w", err)
	}
	return nil
}

func (c *Conn) StreamSelect(schema, table string) *Rows {
	return c.StreamQuery(c.tableExportSQL(schema, table))
}

// StreamQuery dials a single ETL worker, substitutes its proxy URL into
// sqlTemplate's "%s" placeholder, and returns a Rows whose Data channel
// receives the worker's decoded chunked body as it arrives.
func (c *Conn) StreamQuery(sqlTemplate string) *Rows {
	r := &Rows{Data: make(chan []byte, 8)}

	worker, wait, err := c.dialRawSingleWorker(EtlExport, sqlTemplate)
	if err != nil {
		r.Error = fmt.Errorf("unable to export data: %w", err)
		close(r.Data)
		return r
	}

	pr, pw := newIOPipe()
	go func() {
		_, err := worker.serveExport(pw)
		pw.CloseWithError(err)
		worker.close()
	}()

	go func() {
		defer close(r.Data)
		buf := make([]byte, 65524)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				r.BytesRead += int64(n)
				r.Data <- chunk
			}
			if err != nil {
				break
			}
		}
		r.Error = wait()
	}()

	return r
}

// Rows is the result of a StreamQuery/BulkQuery export.
type Rows struct {
	BytesRead int64
	Data      chan []byte
	Error     error
}

/*--- Private Routines ---*/

// dialRawSingleWorker dials one ETL worker, substitutes its proxy URL into
// sqlTemplate's "%s" placeholder so a caller can author arbitrary
// IMPORT/EXPORT DML, and dispatches it. It returns the handshaken worker
// (uncompressed, untunneled by TLS: the raw convenience API predates those
// knobs and sticks to plain HTTP) and the job's completion func.
func (c *Conn) dialRawSingleWorker(direction EtlDirection, sqlTemplate string) (*etlWorker, func() error, error) {
	desc := EtlJobDescriptor{Direction: direction, NumWorkers: 1}
	endpoints, _, err := c.dialWorkers(desc)
	if err != nil {
		return nil, nil, err
	}
	ep := endpoints[0]

	proxyURL := fmt.Sprintf("%s://%s", desc.scheme(), ep.Addr.String())
	sql := fmt.Sprintf(sqlTemplate, proxyURL)
	c.log.Debug("Stream sql: ", sql)

	res := &execRes{}
	recv, err := c.asyncSend(&execReq{Command: "execute", SqlText: sql}, res)
	if err != nil {
		ep.conn.Close()
		return nil, nil, fmt.Errorf("unable to stream sql: %w", err)
	}

	worker := newEtlWorker(ep.conn, ep.Addr, false, c.log)
	wait := func() error {
		if err := recv(); err != nil {
			return err
		}
		return checkEtlExecResult(res)
	}
	return worker, wait, nil
}

func (c *Conn) tableImportSQL(schema, table string) string {
	return fmt.Sprintf(
		"IMPORT INTO %s.%s FROM CSV AT '%%s' FILE 'data.csv'",
		c.QuoteIdent(schema), c.QuoteIdent(table),
	)
}

func (c *Conn) tableExportSQL(schema, table string) string {
	return fmt.Sprintf(
		"EXPORT %s.%s INTO CSV AT '%%s' FILE 'data.csv'",
		c.QuoteIdent(schema), c.QuoteIdent(table),
	)
}
