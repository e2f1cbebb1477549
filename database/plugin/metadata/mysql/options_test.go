// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mysql

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	d := NewWithOptions(
		WithHost("db.example.com"),
		WithPort(3307),
		WithUser("ballot"),
		WithPassword("secret"),
		WithDatabase("elections"),
		WithTLS("skip-verify"),
	)
	cfg, err := mysql.ParseDSN(d.DSN())
	require.NoError(t, err)
	assert.Equal(t, "ballot", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db.example.com:3307", cfg.Addr)
	assert.Equal(t, "elections", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "skip-verify", cfg.TLSConfig)

	d = NewWithOptions(WithDSN("u:p@tcp(h:3306)/db"))
	assert.Equal(t, "u:p@tcp(h:3306)/db", d.DSN())
}

func TestDefaults(t *testing.T) {
	d := NewWithOptions()
	assert.Equal(t, "localhost", d.host)
	assert.Equal(t, uint(3306), d.port)
	assert.Equal(t, "root", d.user)
	assert.Equal(t, "ballot", d.database)
	assert.NoError(t, d.Close())
}
