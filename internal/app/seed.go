package app

import "github.com/alanyoungcy/babylonsim/internal/domain"

// demoActors mirrors the migration seed so demo mode plays out with the same
// cast as a fresh database.
var demoActors = []domain.Actor{
	{ID: "actor-aldric", Name: "Aldric Vane", Bio: "Founder of Vane Holdings, never knowingly understated a forecast."},
	{ID: "actor-beatrix", Name: "Beatrix Mora", Bio: "Activist short seller with a newsletter and a grudge."},
	{ID: "actor-cassian", Name: "Cassian Reyes", Bio: "Serial board member, collects directorships like stamps."},
	{ID: "actor-delia", Name: "Delia Ashworth", Bio: "Runs the city's most-read markets gossip feed."},
	{ID: "actor-emeric", Name: "Emeric Sol", Bio: "Quant turned mystic, prices everything in vibes."},
	{ID: "actor-fiora", Name: "Fiora Castell", Bio: "Heiress to the Castell shipping fortune, bored of shipping."},
	{ID: "actor-gideon", Name: "Gideon Pratt", Bio: "Regulator on sabbatical, keeps turning up at launch parties."},
	{ID: "actor-halcyon", Name: "Halcyon Wu", Bio: "Venture capitalist who has never seen a down round."},
	{ID: "actor-isolde", Name: "Isolde Ferrant", Bio: "Crisis-communications fixer, billed by the scandal."},
	{ID: "actor-jasper", Name: "Jasper Kline", Bio: "Anonymous whistleblower, terrible at staying anonymous."},
	{ID: "actor-katarin", Name: "Katarin Voss", Bio: "CEO of Voss Dynamics, allergic to quarterly guidance."},
	{ID: "actor-lazlo", Name: "Lazlo Brandt", Bio: "Commodity trader, long everything flammable."},
}

var demoCompanies = []domain.Company{
	{ID: "co-vane", Name: "Vane Holdings", Ticker: "VANE", CurrentPrice: 142.50, InitialPrice: 142.50},
	{ID: "co-voss", Name: "Voss Dynamics", Ticker: "VOSS", CurrentPrice: 87.20, InitialPrice: 87.20},
	{ID: "co-castell", Name: "Castell Shipping", Ticker: "CSTL", CurrentPrice: 54.75, InitialPrice: 54.75},
	{ID: "co-aether", Name: "Aether Grid Utilities", Ticker: "AETH", CurrentPrice: 31.10, InitialPrice: 31.10},
	{ID: "co-mirage", Name: "Mirage Entertainment", Ticker: "MRGE", CurrentPrice: 19.80, InitialPrice: 19.80},
	{ID: "co-pillar", Name: "Pillar Trust Bank", Ticker: "PLLR", CurrentPrice: 205.00, InitialPrice: 205.00},
	{ID: "co-lumen", Name: "Lumen Biogenics", Ticker: "LUMN", CurrentPrice: 66.40, InitialPrice: 66.40},
	{ID: "co-orchard", Name: "Orchard Agritech", Ticker: "ORCH", CurrentPrice: 42.95, InitialPrice: 42.95},
}
