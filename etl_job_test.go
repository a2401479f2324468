package exasol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func endpointsFor(addrs ...string) []*WorkerEndpoint {
	eps := make([]*WorkerEndpoint, len(addrs))
	for i, a := range addrs {
		eps[i] = &WorkerEndpoint{Addr: mustParseAddr(a)}
	}
	return eps
}

func mustParseAddr(s string) internalAddr {
	// s is "ip:port"; tests only ever pass well-formed literals.
	var ip string
	var port uint16
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			ip = s[:i]
			for _, c := range s[i+1:] {
				port = port*10 + uint16(c-'0')
			}
			break
		}
	}
	return internalAddr{IP: ip, Port: port}
}

func TestBuildEtlSQLExport(t *testing.T) {
	desc := EtlJobDescriptor{
		Direction:   EtlExport,
		NumWorkers:  2,
		Compressed:  true,
		TLS:         false,
		SchemaTable: `"s"."t"`,
	}
	endpoints := endpointsFor("10.0.0.1:100", "10.0.0.2:200")

	sql := buildEtlSQL(desc, endpoints)
	assert.Contains(t, sql, `EXPORT "s"."t"`)
	assert.Contains(t, sql, "AT 'http://10.0.0.1:100' FILE 'EXPORT_00000.gz'")
	assert.Contains(t, sql, "AT 'http://10.0.0.2:200' FILE 'EXPORT_00001.gz'")
	assert.Contains(t, sql, "ROW SEPARATOR = 'LF'")
}

func TestBuildEtlSQLImport(t *testing.T) {
	desc := EtlJobDescriptor{
		Direction:   EtlImport,
		NumWorkers:  1,
		SchemaTable: `"s"."t"`,
		ColumnList:  []string{"a", "b"},
		SkipRows:    1,
	}
	endpoints := endpointsFor("10.0.0.1:9000")

	sql := buildEtlSQL(desc, endpoints)
	assert.Contains(t, sql, `IMPORT INTO "s"."t" (a, b)`)
	assert.Contains(t, sql, "AT 'http://10.0.0.1:9000' FILE 'IMPORT_00000.csv'")
	assert.Contains(t, sql, "SKIP = 1")
}

func TestBuildEtlSQLTLSScheme(t *testing.T) {
	desc := EtlJobDescriptor{Direction: EtlExport, NumWorkers: 1, TLS: true, SchemaTable: "t"}
	endpoints := endpointsFor("10.0.0.1:1")
	sql := buildEtlSQL(desc, endpoints)
	assert.Contains(t, sql, "AT 'https://10.0.0.1:1'")
}

func TestCheckEtlExecResultRejectsResultSet(t *testing.T) {
	res := &execRes{ResponseData: &execData{
		NumResults: 1,
		Results:    []result{{ResultType: resultSetType}},
	}}
	err := checkEtlExecResult(res)
	assert.ErrorIs(t, err, ErrResultSetFromEtl)
}

func TestCheckEtlExecResultAcceptsRowCount(t *testing.T) {
	res := &execRes{ResponseData: &execData{
		NumResults: 1,
		Results:    []result{{ResultType: rowCountType, RowCount: 42}},
	}}
	assert.NoError(t, checkEtlExecResult(res))
}

func TestEtlJobDescriptorHelpers(t *testing.T) {
	d := EtlJobDescriptor{}
	assert.Equal(t, "csv", d.fileExt())
	assert.Equal(t, "http", d.scheme())
	assert.Equal(t, defaultEtlBufferSize, d.bufferSize())

	d.Compressed = true
	d.TLS = true
	d.BufferSize = defaultEtlBufferSize * 4
	assert.Equal(t, "gz", d.fileExt())
	assert.Equal(t, "https", d.scheme())
	assert.Equal(t, defaultEtlBufferSize*4, d.bufferSize())
}

func TestDialWorkersRejectsNoWorkers(t *testing.T) {
	c := &Conn{nodes: []string{"127.0.0.1:1234"}}
	_, _, err := c.dialWorkers(EtlJobDescriptor{NumWorkers: 0})
	assert.Error(t, err)
}

func TestDialWorkersRejectsNoNodes(t *testing.T) {
	c := &Conn{}
	_, _, err := c.dialWorkers(EtlJobDescriptor{NumWorkers: 1})
	assert.Error(t, err)
}
