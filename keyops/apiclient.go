/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

// Client side API client calls

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func NewClient(name, baseurl, apikey, authmethod, rootcafile string, verbose, debug bool) (*ApiClient, error) {
	api := ApiClient{
		Name:       name,
		BaseUrl:    baseurl,
		apiKey:     apikey,
		AuthMethod: authmethod,
		Verbose:    verbose,
		Debug:      debug,
	}

	switch rootcafile {
	case "":
		api.Client = &http.Client{Timeout: 30 * time.Second}
	case "insecure":
		api.Client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
		}
	default:
		rootCA, err := os.ReadFile(rootcafile)
		if err != nil {
			return nil, fmt.Errorf("reading cert failed: %w", err)
		}
		rootCAPool := x509.NewCertPool()
		rootCAPool.AppendCertsFromPEM(rootCA)
		api.Client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: rootCAPool,
				},
			},
		}
	}

	if debug {
		fmt.Printf("Setting up %s API client:\n", name)
		fmt.Printf("* baseurl is: %s \n* authmethod is: %s \n", api.BaseUrl, api.AuthMethod)
	}

	return &api, nil
}

func (api *ApiClient) requestHelper(req *http.Request) (int, []byte, error) {

	req.Header.Add("Content-Type", "application/json")

	switch api.AuthMethod {
	case "":
		// no authentication header at all
	case "X-API-Key":
		req.Header.Add("X-API-Key", api.apiKey)
	default:
		return 501, nil, fmt.Errorf("unknown auth method: %s", api.AuthMethod)
	}

	resp, err := api.Client.Do(req)
	if err != nil {
		return 501, nil, err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if api.Debug {
		var prettyJSON bytes.Buffer
		if jerr := json.Indent(&prettyJSON, buf, "", "  "); jerr != nil {
			log.Println("JSON parse error: ", jerr)
		}
		fmt.Printf("requestHelper: received %d bytes of response data:\n%s\n", len(buf), prettyJSON.String())
	}

	return resp.StatusCode, buf, err
}

func (api *ApiClient) Post(endpoint string, data []byte) (int, []byte, error) {
	if api.Debug {
		fmt.Printf("api.Post: posting to URL '%s' %d bytes of data\n", api.BaseUrl+endpoint, len(data))
	}

	req, err := http.NewRequest(http.MethodPost, api.BaseUrl+endpoint, bytes.NewBuffer(data))
	if err != nil {
		return 0, nil, fmt.Errorf("error from http.NewRequest: %w", err)
	}
	return api.requestHelper(req)
}

// RequestNG posts data as JSON and decodes the JSON response into resp.
func (api *ApiClient) RequestNG(endpoint string, data interface{}, resp interface{}) (int, error) {
	bytebuf := new(bytes.Buffer)
	if err := json.NewEncoder(bytebuf).Encode(data); err != nil {
		return 0, fmt.Errorf("error encoding request: %w", err)
	}

	status, buf, err := api.Post(endpoint, bytebuf.Bytes())
	if err != nil {
		return status, fmt.Errorf("error from api post: %w", err)
	}
	if status != http.StatusOK {
		return status, fmt.Errorf("API %s returned status %d", endpoint, status)
	}

	if err := json.Unmarshal(buf, resp); err != nil {
		return status, fmt.Errorf("error from unmarshal: %w", err)
	}
	return status, nil
}
