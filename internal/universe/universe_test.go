package universe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingCSV = `コード,銘柄名,市場・商品区分,33業種区分,17業種区分
1301,極洋,プライム（内国株式）,水産・農林業,食品
1305,ｉＦｒｅｅＥＴＦ,ETF・ETN,-,-
25935,伊藤園第１種優先株式,プライム（内国株式）,食料品,食品
7203,トヨタ自動車,プライム（内国株式）,輸送用機器,自動車・輸送機
8951,日本ビルファンド投資法人,REIT・ベンチャーファンド・カントリーファンド・インフラファンド,-,-
9999,テスト,PRO Market,情報・通信業,情報通信・サービスその他
`

func TestParseFiltersNonEquityCategories(t *testing.T) {
	listings, err := Parse(strings.NewReader(listingCSV))
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "1301", listings[0].Code)
	assert.Equal(t, "7203", listings[1].Code)
	assert.Equal(t, "7203.T", listings[1].Symbol())
	assert.Equal(t, "輸送用機器", listings[1].Type33)
}

func TestParseSkipsShortRows(t *testing.T) {
	listings, err := Parse(strings.NewReader("コード,銘柄名\n1301,極洋\n"))
	require.NoError(t, err)
	assert.Empty(t, listings)
}
