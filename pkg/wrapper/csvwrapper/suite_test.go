package csvwrapper_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/wrappertest"
)

func TestCSVWrapper_Conformance(t *testing.T) {
	wrappertest.Suite{
		NewFixture: func(t *testing.T) wrappertest.Fixture {
			path := filepath.Join(t.TempDir(), "data.csv")
			require.NoError(t, os.WriteFile(path, []byte("1,x\n"), 0644))
			table := testTable(path, 10)

			return wrappertest.Fixture{
				NewWrapper: func(t *testing.T) wrapper.DataWrapper {
					return csvwrapper.New(table)
				},
				Key:           chunkkey.New(1, 1, 1, 0),
				ExpectedBytes: []byte("1\n"),
			}
		},
	}.Run(t)
}
