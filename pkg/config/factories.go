package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/foreignstorage"
	"github.com/chandrudp29/omniscidb/pkg/scheduler"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/parquetwrapper"
)

// ParseTableRefreshOptions decodes and validates a table's refresh_* option
// map using the scheduler's own CREATE-time parser (§4.F), reusing that
// parser's unit-suffix and RFC3339 rules now that catalog entries come from
// config instead of live DDL.
func ParseTableRefreshOptions(options map[string]any) (scheduler.CreateOptions, error) {
	return scheduler.ParseCreateOptions(options, time.Now())
}

// BuildCatalog registers every configured table into a new catalog and
// returns, alongside it, each table's parsed CreateOptions keyed by its
// chunk-key prefix string — what the scheduler needs to decide which
// tables belong on its refresh heap (ScheduleTable is a no-op for any
// table whose TimingType isn't catalog.TimingScheduled).
func BuildCatalog(cfg *Config) (*catalog.Catalog, map[string]scheduler.CreateOptions, error) {
	cat := catalog.New()
	createOpts := make(map[string]scheduler.CreateOptions, len(cfg.Tables))

	for _, tc := range cfg.Tables {
		opts, err := ParseTableRefreshOptions(tc.Options)
		if err != nil {
			return nil, nil, fmt.Errorf("config: table %q: %w", tc.Name, err)
		}

		columns := make([]catalog.ColumnDef, len(tc.Columns))
		for i, c := range tc.Columns {
			columns[i] = catalog.ColumnDef{
				ColumnID: c.ColumnID,
				Name:     c.Name,
				Type:     c.Type,
				IsVarlen: c.IsVarlen,
			}
		}

		table := &catalog.ForeignTable{
			DBID:         tc.DBID,
			TableID:      tc.TableID,
			Name:         tc.Name,
			Wrapper:      catalog.WrapperType(tc.Wrapper),
			SourcePath:   tc.SourcePath,
			Columns:      columns,
			FragmentSize: tc.FragmentSize,
			Refresh:      opts.ToRefreshOptions(),
		}
		if err := cat.RegisterTable(table); err != nil {
			return nil, nil, fmt.Errorf("config: %w", err)
		}

		prefix := chunkkey.New(tc.DBID, tc.TableID)
		createOpts[prefix.String()] = opts
	}

	return cat, createOpts, nil
}

// CreateWrapperFactory returns a foreignstorage.WrapperFactory that builds a
// csvwrapper.Wrapper or parquetwrapper.Wrapper per table.Wrapper. Any table
// configured with an "s3://" source_path shares a single lazily-built S3
// client, configured from s3Cfg when its fields are set and the default AWS
// credential chain/region resolution otherwise.
func CreateWrapperFactory(ctx context.Context, s3Cfg S3Config) (foreignstorage.WrapperFactory, error) {
	var s3Client *s3.Client
	var s3Err error
	var s3Built bool

	getS3Client := func() (*s3.Client, error) {
		if s3Built {
			return s3Client, s3Err
		}
		s3Built = true

		var opts []func(*awsConfig.LoadOptions) error
		if s3Cfg.Region != "" {
			opts = append(opts, awsConfig.WithRegion(s3Cfg.Region))
		}
		if s3Cfg.Endpoint != "" {
			opts = append(opts, awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: s3Cfg.Endpoint, HostnameImmutable: true, Source: aws.EndpointSourceCustom}, nil
				},
			)))
		}
		if s3Cfg.AccessKeyID != "" && s3Cfg.SecretAccessKey != "" {
			opts = append(opts, awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey, "",
			)))
		}

		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s3Err = fmt.Errorf("config: loading AWS config: %w", err)
			return nil, s3Err
		}
		s3Client = s3.NewFromConfig(awsCfg)
		return s3Client, nil
	}

	return func(table *catalog.ForeignTable) (wrapper.DataWrapper, error) {
		switch table.Wrapper {
		case catalog.WrapperCSV:
			return csvwrapper.New(table), nil
		case catalog.WrapperParquet:
			if strings.HasPrefix(table.SourcePath, "s3://") {
				client, err := getS3Client()
				if err != nil {
					return nil, err
				}
				return parquetwrapper.NewWithS3Client(table, client)
			}
			return parquetwrapper.NewWithS3Client(table, nil)
		default:
			return nil, fmt.Errorf("config: table %q: unknown wrapper type %q", table.Name, table.Wrapper)
		}
	}, nil
}
