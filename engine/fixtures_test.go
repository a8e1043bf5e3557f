package engine

import (
	"math"
	"time"
)

// --- Test Fixtures ---

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func sale(date, branch, item string, total float64) Record {
	r := Record{Branch: branch, Item: item, Total: total, Quantity: 1, UoM: "PCS"}
	if date != "" {
		r.Date, r.HasDate = day(date), true
	}
	return r
}

// branchSales: VV totals 100, 200, 300; SK totals 50, 50.
func branchSales() []Record {
	return []Record{
		sale("2024-07-10", "VV", "Mysore Pak Special", 100),
		sale("2024-08-02", "SK", "Bombay Mixture", 50),
		sale("2024-08-05", "VV", "mysore pak (500g)", 200),
		sale("2024-07-21", "SK", "Kaju Katli", 50),
		sale("2024-08-30", "VV", "Kaju Katli", 300),
	}
}

// channelSales spans two months and two sales groups.
func channelSales() []Record {
	rows := []Record{
		sale("2024-07-03", "VV", "Kaju Katli", 100),
		sale("2024-07-09", "SK", "Kaju Katli", 40),
		sale("2024-08-01", "VV", "Kaju Katli", 300),
		sale("2024-08-15", "SK", "Mysore Pak", 60),
		sale("2024-08-20", "MG", "Mysore Pak", 10),
	}
	groups := []string{"Online", "In-Store", "Online", "In-Store", "In-Store"}
	for i := range rows {
		rows[i].SalesGroup = groups[i]
	}
	return rows
}

func nan() float64 { return math.NaN() }

func labels(s Series) []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Label
	}
	return out
}

func values(s Series) []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

func mustPlan(raw map[string]any, opts ...Option) Plan {
	p, err := NormalizePlan(raw, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
