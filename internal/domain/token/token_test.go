package token_test

import (
	"testing"

	"github.com/aragon/ownership-token-framework/internal/domain/token"
	. "github.com/smartystreets/goconvey/convey"
)

func fixture() []token.Token {
	return []token.Token{
		{ID: "aave", Name: "Aave", Symbol: "AAVE", Address: "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9", Network: "ethereum"},
		{ID: "uniswap", Name: "Uniswap", Symbol: "UNI", Address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", Network: "ethereum"},
		{ID: "curve", Name: "Curve", Symbol: "CRV", Address: "0x11cDb42B0EB46D95f990BeDD4695A6e3fA034978", Network: "arbitrum"},
	}
}

func TestNormalizeID(t *testing.T) {
	Convey("Given token ids in various shapes", t, func() {
		Convey("Then trimming and case folding should produce the lookup key", func() {
			So(token.NormalizeID("  AAVE "), ShouldEqual, "aave")
			So(token.NormalizeID("Uniswap"), ShouldEqual, "uniswap")
			So(token.NormalizeID(""), ShouldEqual, "")
		})

		Convey("Then symbols should be trimmed and upper-cased", func() {
			So(token.NormalizeSymbol(" crv "), ShouldEqual, "CRV")
		})
	})
}

func TestDirectory(t *testing.T) {
	Convey("Given a directory over three tokens", t, func() {
		d := token.NewDirectory(fixture())

		Convey("When listing", func() {
			list := d.List()

			Convey("Then authoring order should be kept", func() {
				So(d.Len(), ShouldEqual, 3)
				So(list[0].ID, ShouldEqual, "aave")
				So(list[1].ID, ShouldEqual, "uniswap")
				So(list[2].ID, ShouldEqual, "curve")
			})

			Convey("And mutating the result should not touch the directory", func() {
				list[0].Name = "changed"
				So(d.List()[0].Name, ShouldEqual, "Aave")
			})
		})

		Convey("When looking tokens up by id", func() {
			Convey("Then lookups should ignore case and whitespace", func() {
				tok, err := d.Get(" UniSwap ")
				So(err, ShouldBeNil)
				So(tok.Symbol, ShouldEqual, "UNI")
			})

			Convey("Then unknown ids should report ErrNotFound", func() {
				_, err := d.Get("zzz-unknown")
				So(err, ShouldEqual, token.ErrNotFound)
			})
		})

		Convey("When filtering the table", func() {
			Convey("Then name matches should be case-insensitive", func() {
				out := d.Filter("CUR", "")
				So(len(out), ShouldEqual, 1)
				So(out[0].ID, ShouldEqual, "curve")
			})

			Convey("Then address fragments should match", func() {
				out := d.Filter("0x1f98", "")
				So(len(out), ShouldEqual, 1)
				So(out[0].ID, ShouldEqual, "uniswap")
			})

			Convey("Then the network filter should require equality", func() {
				out := d.Filter("", "ethereum")
				So(len(out), ShouldEqual, 2)
				So(d.Filter("a", "arbitrum")[0].ID, ShouldEqual, "curve")
			})

			Convey("Then an empty filter should list everything", func() {
				So(len(d.Filter("  ", "")), ShouldEqual, 3)
			})
		})

		Convey("When listing networks", func() {
			So(d.Networks(), ShouldResemble, []string{"ethereum", "arbitrum"})
		})
	})

	Convey("Given a deployment symbol filter", t, func() {
		Convey("When a token matches the symbol", func() {
			d := token.NewDirectory(fixture(), token.WithSymbolFilter(" uni "))

			Convey("Then only matching tokens should be listed", func() {
				So(d.Len(), ShouldEqual, 1)
				_, err := d.Get("aave")
				So(err, ShouldEqual, token.ErrNotFound)
			})
		})

		Convey("When nothing matches the symbol", func() {
			d := token.NewDirectory(fixture(), token.WithSymbolFilter("NOPE"))

			Convey("Then every token should be listed", func() {
				So(d.Len(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given duplicate ids", t, func() {
		tokens := append(fixture(), token.Token{ID: "AAVE", Name: "Second"})
		d := token.NewDirectory(tokens)

		Convey("Then the first occurrence should win lookups", func() {
			tok, err := d.Get("aave")
			So(err, ShouldBeNil)
			So(tok.Name, ShouldEqual, "Aave")
		})
	})
}

func TestDisplayHelpers(t *testing.T) {
	Convey("Given addresses to truncate", t, func() {
		Convey("Then long addresses should keep six leading and four trailing characters", func() {
			So(token.TruncateAddress("0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9"), ShouldEqual, "0x7Fc6...DaE9")
		})

		Convey("Then already shortened addresses should be unchanged", func() {
			So(token.TruncateAddress("0x7Fc6...DaE9"), ShouldEqual, "0x7Fc6...DaE9")
		})

		Convey("Then short addresses should be unchanged", func() {
			So(token.TruncateAddress("0x1234"), ShouldEqual, "0x1234")
			So(token.TruncateAddress(""), ShouldEqual, "")
		})

		Convey("Then custom lengths should be honoured", func() {
			So(token.TruncateAddressN("abcdefghijkl", 2, 2), ShouldEqual, "ab...kl")
		})
	})

	Convey("Given unix timestamps", t, func() {
		Convey("Then they should render as day month year in UTC", func() {
			So(token.FormatUpdated(1768435200), ShouldEqual, "15 January 2026")
		})

		Convey("Then zero should render empty", func() {
			So(token.FormatUpdated(0), ShouldEqual, "")
		})
	})
}
