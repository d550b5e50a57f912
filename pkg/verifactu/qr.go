package verifactu

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// URLs del servicio de cotejo de facturas (código QR).
const (
	QRURLTest = "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR"
	QRURLProd = "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR"
)

// QRURL URL de cotejo que se imprime como QR en la factura. Fecha dd-mm-aaaa e importe con dos decimales.
func QRURL(appEnv, nif, number string, date time.Time, total decimal.Decimal) string {
	base := QRURLTest
	if appEnv == AppEnvProd {
		base = QRURLProd
	}
	q := url.Values{}
	q.Set("nif", NormalizeNIF(nif))
	q.Set("numserie", number)
	q.Set("fecha", date.Format("02-01-2006"))
	q.Set("importe", total.StringFixed(2))
	return base + "?" + q.Encode()
}
