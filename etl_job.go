/*
    AUTHOR

	Grant Street Group <developers@grantstreet.com>

	COPYRIGHT AND LICENSE

	This software is Copyright (c) 2019 by Grant Street Group.
	This is free software, licensed under:
	    MIT License
*/

package exasol

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EtlDirection names which SQL statement an ETL job synthesizes.
type EtlDirection int

const (
	EtlImport EtlDirection = iota
	EtlExport
)

func (d EtlDirection) fileTag() string {
	if d == EtlImport {
		return "IMPORT"
	}
	return "EXPORT"
}

// RowSeparator is the CSV row terminator an ETL job's SQL requests.
type RowSeparator int

const (
	RowSepLF RowSeparator = iota
	RowSepCR
	RowSepCRLF
)

func (r RowSeparator) String() string {
	switch r {
	case RowSepCR:
		return "CR"
	case RowSepCRLF:
		return "CRLF"
	default:
		return "LF"
	}
}

// EtlJobDescriptor is the full set of knobs for one IMPORT/EXPORT job.
type EtlJobDescriptor struct {
	Direction       EtlDirection
	NumWorkers      int
	Compressed      bool
	TLS             bool
	RowSep          RowSeparator
	ColumnSep       rune
	ColumnDelim     rune
	WithColumnNames bool
	SkipRows        uint64
	BufferSize      int
	Comment         string
	SchemaTable     string // already quoted, e.g. `"s"."t"`
	ColumnList      []string
}

func (d EtlJobDescriptor) fileExt() string {
	if d.Compressed {
		return "gz"
	}
	return "csv"
}

func (d EtlJobDescriptor) scheme() string {
	if d.TLS {
		return "https"
	}
	return "http"
}

const defaultEtlBufferSize = 65536

func (d EtlJobDescriptor) bufferSize() int {
	if d.BufferSize < defaultEtlBufferSize {
		return defaultEtlBufferSize
	}
	return d.BufferSize
}

// WorkerEndpoint is one worker's handshaken socket plus the internal
// address the cluster will dial to reach it. Once built it's immutable.
type WorkerEndpoint struct {
	Addr internalAddr
	conn etlSocket
}

// dialWorkers opens NumWorkers sockets round-robin across c.nodes,
// performs the tunnel handshake on each, and TLS-wraps them when
// desc.TLS is set. On any failure, already-opened sockets are closed
// before returning the error.
func (c *Conn) dialWorkers(desc EtlJobDescriptor) ([]*WorkerEndpoint, *etlJobCert, error) {
	if desc.NumWorkers < 1 {
		return nil, nil, &ConfigError{Msg: "ETL job requires at least one worker"}
	}
	if len(c.nodes) == 0 {
		return nil, nil, &ConfigError{Msg: "no cluster nodes known for ETL dialing"}
	}

	var cert *etlJobCert
	if desc.TLS {
		var err error
		cert, err = mintEtlCert()
		if err != nil {
			return nil, nil, err
		}
	}

	endpoints := make([]*WorkerEndpoint, 0, desc.NumWorkers)
	cleanup := func() {
		for _, ep := range endpoints {
			ep.conn.Close()
		}
	}

	for i := 0; i < desc.NumWorkers; i++ {
		node := c.nodes[i%len(c.nodes)]
		conn, err := dialNode(node, c.Conf.ConnectTimeout)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		addr, err := tunnelHandshake(conn)
		if err != nil {
			conn.Close()
			cleanup()
			return nil, nil, err
		}

		var sock etlSocket = conn
		if desc.TLS {
			sock, err = upgradeToTLS(conn, cert)
			if err != nil {
				conn.Close()
				cleanup()
				return nil, nil, err
			}
		}

		endpoints = append(endpoints, &WorkerEndpoint{Addr: addr, conn: sock})
	}

	return endpoints, cert, nil
}

// buildEtlSQL synthesizes the IMPORT/EXPORT statement referencing every
// endpoint's internal address.
func buildEtlSQL(desc EtlJobDescriptor, endpoints []*WorkerEndpoint) string {
	var b strings.Builder

	if desc.Direction == EtlImport {
		b.WriteString("IMPORT INTO ")
		b.WriteString(desc.SchemaTable)
		pushColumnList(&b, desc.ColumnList)
		b.WriteString("\n  FROM CSV\n")
	} else {
		b.WriteString("EXPORT ")
		b.WriteString(desc.SchemaTable)
		pushColumnList(&b, desc.ColumnList)
		b.WriteString(" INTO CSV\n")
	}

	for i, ep := range endpoints {
		fmt.Fprintf(&b, "    AT '%s://%s' FILE '%s_%05d.%s'\n",
			desc.scheme(), ep.Addr.String(), desc.Direction.fileTag(), i, desc.fileExt())
	}

	fmt.Fprintf(&b, "  ROW SEPARATOR = '%s'\n", desc.RowSep.String())
	if desc.ColumnSep != 0 {
		fmt.Fprintf(&b, "  COLUMN SEPARATOR = '%c'\n", desc.ColumnSep)
	}
	if desc.ColumnDelim != 0 {
		fmt.Fprintf(&b, "  COLUMN DELIMITER = '%c'\n", desc.ColumnDelim)
	}
	if desc.Direction == EtlImport && desc.SkipRows > 0 {
		fmt.Fprintf(&b, "  SKIP = %d\n", desc.SkipRows)
	}
	if desc.Direction == EtlExport && desc.WithColumnNames {
		b.WriteString("  WITH COLUMN NAMES\n")
	}
	if desc.Comment != "" {
		fmt.Fprintf(&b, "  /* %s */\n", strings.ReplaceAll(desc.Comment, "*/", ""))
	}

	return b.String()
}

func pushColumnList(b *strings.Builder, cols []string) {
	if len(cols) == 0 {
		return
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")")
}

// RunImport starts an IMPORT job: NumWorkers HTTP servers that stream the
// writers' bytes to the cluster, and the synthesized SQL, all run
// concurrently. The returned writers are ready to use immediately; Wait
// must be called exactly once, after every writer has been closed, to
// observe the job's outcome.
func (c *Conn) RunImport(desc EtlJobDescriptor) (writers []*WorkerWriter, wait func() error, err error) {
	desc.Direction = EtlImport
	endpoints, _, err := c.dialWorkers(desc)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(c.ctxOrBackground())
	g, gctx := errgroup.WithContext(ctx)
	closeEndpointsOnCancel(gctx, endpoints)

	writers = make([]*WorkerWriter, len(endpoints))
	for i, ep := range endpoints {
		pr, pw := newIOPipe()
		writers[i] = &WorkerWriter{pw: pw}
		worker := newEtlWorker(ep.conn, ep.Addr, desc.Compressed, c.log)
		g.Go(func() error {
			err := worker.serveImport(pr)
			pr.CloseWithError(err)
			worker.close()
			return err
		})
	}

	// The SQL is dispatched now (asyncSend): the IMPORT/EXPORT request
	// goes out before the workers have produced any bytes, and the
	// response is collected concurrently with worker I/O.
	sql := buildEtlSQL(desc, endpoints)
	c.log.Debug("ETL import SQL: ", sql)
	res := &execRes{}
	recv, err := c.asyncSend(&execReq{Command: "execute", SqlText: sql}, res)
	if err != nil {
		cancel()
		for _, w := range writers {
			w.pw.CloseWithError(err)
		}
		return nil, nil, err
	}

	g.Go(func() error {
		if err := recv(); err != nil {
			return err
		}
		return checkEtlExecResult(res)
	})

	return writers, func() error {
		defer cancel()
		return g.Wait()
	}, nil
}

// RunExport starts an EXPORT job: NumWorkers HTTP servers that decode the
// cluster's chunked uploads into the returned readers, and the
// synthesized SQL, all run concurrently. Wait must be called exactly once
// after every reader has reached EOF.
func (c *Conn) RunExport(desc EtlJobDescriptor) (readers []*WorkerReader, wait func() error, err error) {
	desc.Direction = EtlExport
	endpoints, _, err := c.dialWorkers(desc)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(c.ctxOrBackground())
	g, gctx := errgroup.WithContext(ctx)
	closeEndpointsOnCancel(gctx, endpoints)

	readers = make([]*WorkerReader, len(endpoints))
	for i, ep := range endpoints {
		pr, pw := newIOPipe()
		readers[i] = &WorkerReader{pr: pr}
		worker := newEtlWorker(ep.conn, ep.Addr, desc.Compressed, c.log)
		g.Go(func() error {
			_, err := worker.serveExport(pw)
			pw.CloseWithError(err)
			worker.close()
			return err
		})
	}

	sql := buildEtlSQL(desc, endpoints)
	c.log.Debug("ETL export SQL: ", sql)
	res := &execRes{}
	recv, err := c.asyncSend(&execReq{Command: "execute", SqlText: sql}, res)
	if err != nil {
		cancel()
		for _, r := range readers {
			r.pr.CloseWithError(err)
		}
		return nil, nil, err
	}

	g.Go(func() error {
		if err := recv(); err != nil {
			return err
		}
		return checkEtlExecResult(res)
	})

	return readers, func() error {
		defer cancel()
		return g.Wait()
	}, nil
}

// checkEtlExecResult enforces the ETL job's success condition: the SQL
// must return a row count, never a result set.
func checkEtlExecResult(res *execRes) error {
	if res.ResponseData == nil {
		return nil
	}
	for _, r := range res.ResponseData.Results {
		if r.ResultType == resultSetType {
			return &ProtocolError{Msg: "ETL job returned a result set", Err: ErrResultSetFromEtl}
		}
	}
	return nil
}

func (c *Conn) ctxOrBackground() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

// closeEndpointsOnCancel propagates cancellation to every worker. When ctx
// is done, whether because one worker or the SQL errored first or because
// the caller cancelled the job's own context, every worker socket is
// closed so a sibling blocked mid-read/write unblocks with an I/O error
// instead of hanging forever.
func closeEndpointsOnCancel(ctx context.Context, endpoints []*WorkerEndpoint) {
	go func() {
		<-ctx.Done()
		for _, ep := range endpoints {
			ep.conn.Close()
		}
	}()
}
