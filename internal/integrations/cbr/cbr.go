package cbr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/agrofund/loan-service/internal/config"
)

const (
	soapNamespace = "http://www.w3.org/2003/05/soap-envelope"
	cbrNamespace  = "http://web.cbr.ru/"
	dateLayout    = "2006-01-02"
	lookbackDays  = 30
)

// KeyRate is one published key rate observation
type KeyRate struct {
	Date time.Time
	Rate float64
}

// CBRClient fetches the Central Bank key rate. Plans priced below it
// (plus the bank margin) are flagged by the service.
type CBRClient struct {
	url    string
	margin float64
	client *http.Client
	log    *logrus.Logger
	now    func() time.Time
}

func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url:    cfg.CBRURL,
		margin: cfg.BankMargin,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		now:    time.Now,
	}
}

// keyRateEnvelope asks for every key rate published in the lookback window
func (c *CBRClient) keyRateEnvelope() ([]byte, error) {
	now := c.now()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	env := doc.CreateElement("soap12:Envelope")
	env.CreateAttr("xmlns:soap12", soapNamespace)
	call := env.CreateElement("soap12:Body").CreateElement("KeyRate")
	call.CreateAttr("xmlns", cbrNamespace)
	call.CreateElement("fromDate").SetText(now.AddDate(0, 0, -lookbackDays).Format(dateLayout))
	call.CreateElement("ToDate").SetText(now.Format(dateLayout))

	return doc.WriteToBytes()
}

func (c *CBRClient) post(ctx context.Context, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", cbrNamespace+"KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseKeyRates reads every KR row of the diffgram
func parseKeyRates(raw []byte) ([]KeyRate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return nil, errors.New("no key rate data found in XML")
	}

	rates := make([]KeyRate, 0, len(rows))
	for _, row := range rows {
		rateEl := row.SelectElement("Rate")
		if rateEl == nil {
			return nil, errors.New("rate element not found in XML")
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rateEl.Text()), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate: %w", err)
		}

		kr := KeyRate{Rate: rate}
		if dt := row.SelectElement("DT"); dt != nil {
			// undated rows sort as oldest
			kr.Date, _ = time.Parse(time.RFC3339, strings.TrimSpace(dt.Text()))
		}
		rates = append(rates, kr)
	}
	return rates, nil
}

func newest(rates []KeyRate) KeyRate {
	latest := rates[0]
	for _, kr := range rates[1:] {
		if kr.Date.After(latest.Date) {
			latest = kr
		}
	}
	return latest
}

// GetKeyRate returns the most recent key rate plus the configured margin
func (c *CBRClient) GetKeyRate(ctx context.Context) (float64, error) {
	envelope, err := c.keyRateEnvelope()
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	body, err := c.post(ctx, envelope)
	if err != nil {
		return 0, err
	}
	rates, err := parseKeyRates(body)
	if err != nil {
		return 0, err
	}

	latest := newest(rates)
	c.log.WithFields(logrus.Fields{
		"key_rate":  latest.Rate,
		"margin":    c.margin,
		"published": latest.Date.Format(dateLayout),
	}).Info("Retrieved key rate")
	return latest.Rate + c.margin, nil
}
