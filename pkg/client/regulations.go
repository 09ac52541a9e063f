package client

import (
	"context"
	"net/url"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// RegulationsClient reads the regulatory catalog.
type RegulationsClient struct {
	client *Client
}

// List returns the matching regulation names.
func (r *RegulationsClient) List(ctx context.Context, opts ListRegulationsOptions) ([]string, error) {
	q := url.Values{}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Matrix != "" {
		q.Set("matrix", opts.Matrix)
	}
	path := "/api/v1/regulations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Regulations []string `json:"regulations"`
		Total       int      `json:"total"`
	}
	if err := r.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Regulations, nil
}

// Get returns one regulation; the name match is case-insensitive.
func (r *RegulationsClient) Get(ctx context.Context, name string) (*Regulation, error) {
	if name == "" {
		return nil, errors.InvalidParam("regulation name is required")
	}
	var reg Regulation
	if err := r.client.get(ctx, "/api/v1/regulations/"+url.PathEscape(name), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}
