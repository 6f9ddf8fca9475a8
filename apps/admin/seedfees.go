package main

import (
	"context"
	"time"

	"github.com/littleoaks/schoolops/core/billing"
)

// seedFees gives a fresh tenant a usable billing policy: one tuition
// structure per common age band plus a catch-all.
func (cli *commandLine) seedFees(orgID string) error {
	ctx := context.Background()
	now := time.Now().UTC()

	structures := []billing.FeeStructure{
		{
			OrganizationID: orgID,
			Name:           "Tuition (ages 2-4)",
			Description:    "Monthly tuition for ages 2-4",
			FeeType:        "tuition",
			Amount:         250,
			EffectiveFrom:  now,
			IsActive:       true,
		},
		{
			OrganizationID: orgID,
			Name:           "Tuition (ages 5-6)",
			Description:    "Monthly tuition for ages 5-6",
			FeeType:        "tuition",
			Amount:         220,
			EffectiveFrom:  now,
			IsActive:       true,
		},
		{
			OrganizationID: orgID,
			Name:           "Tuition",
			Description:    "Standard monthly tuition",
			FeeType:        "tuition",
			Amount:         200,
			EffectiveFrom:  now,
			IsActive:       true,
		},
	}

	for _, fs := range structures {
		if _, err := cli.billSvc.CreateFeeStructure(ctx, fs); err != nil {
			return err
		}
		logger.Printf("created fee structure %q for org %s\n", fs.Name, orgID)
	}
	return nil
}
