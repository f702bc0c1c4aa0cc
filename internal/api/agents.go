package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListAgents retrieves the company's agent roster for thread assignment.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	query := url.Values{}
	query.Set("companyId", c.CompanyID)
	var agents []Agent
	if err := c.Get(ctx, "/users", query, &agents); err != nil {
		return nil, fmt.Errorf("failed to fetch agents: %w", err)
	}
	return agents, nil
}
