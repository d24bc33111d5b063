package catalog

// Default returns the built-in DeFi catalog. Each call returns fresh pointers.
func Default() *Catalog {
	buildings := []*BuildingType{
		{
			ID:              "dex",
			Name:            "DEX Exchange",
			Description:     "Automated market maker generating fees from trades",
			BaseYield:       15,
			BaseCost:        100,
			MaintenanceCost: 5,
			Icon:            "🔄",
			Color:           "bg-defi-cyan",
			Category:        CategoryDeFi,
			RiskLevel:       3,
		},
		{
			ID:              "lending",
			Name:            "Lending Pool",
			Description:     "Earn interest by providing liquidity to borrowers",
			BaseYield:       12,
			BaseCost:        150,
			MaintenanceCost: 4,
			Icon:            "🏦",
			Color:           "bg-defi-blue",
			Category:        CategoryDeFi,
			RiskLevel:       2,
		},
		{
			ID:              "stablecoin",
			Name:            "Stablecoin Mint",
			Description:     "Generate stable returns with minimal risk",
			BaseYield:       8,
			BaseCost:        80,
			MaintenanceCost: 3,
			Icon:            "💰",
			Color:           "bg-defi-green",
			Category:        CategoryDeFi,
			RiskLevel:       1,
		},
		{
			ID:              "nft-market",
			Name:            "NFT Marketplace",
			Description:     "Earn fees from NFT trades and royalties",
			BaseYield:       20,
			BaseCost:        200,
			MaintenanceCost: 6,
			Icon:            "🖼️",
			Color:           "bg-defi-purple",
			Category:        CategoryDeFi,
			RiskLevel:       4,
		},
		{
			ID:              "yield-farm",
			Name:            "Yield Farm",
			Description:     "High-risk, high-reward liquidity mining",
			BaseYield:       35,
			BaseCost:        300,
			MaintenanceCost: 7,
			Icon:            "🌾",
			Color:           "bg-defi-gold",
			Category:        CategoryDeFi,
			RiskLevel:       5,
		},
		{
			ID:              "validator",
			Name:            "Validator Node",
			Description:     "Secure the network and earn staking rewards",
			BaseYield:       18,
			BaseCost:        250,
			MaintenanceCost: 6,
			Icon:            "🛡️",
			Color:           "bg-blue-600",
			Category:        CategoryInfrastructure,
			RiskLevel:       2,
		},
	}

	events := []*EconomicEvent{
		{
			ID:          "bull-market",
			Title:       "Bull Market Rally",
			Description: "Market sentiment is extremely positive! All DeFi protocols see increased activity.",
			Kind:        EventPositive,
			Duration:    10,
			Effects: []EventEffect{
				{Target: InCategory(CategoryDeFi), Modifier: 1.5, Description: "+50% yield for all DeFi buildings"},
			},
			Probability: 0.15,
		},
		{
			ID:          "bear-market",
			Title:       "Market Correction",
			Description: "The market is experiencing a downturn. DeFi activity decreases significantly.",
			Kind:        EventNegative,
			Duration:    15,
			Effects: []EventEffect{
				{Target: InCategory(CategoryDeFi), Modifier: 0.6, Description: "-40% yield for all DeFi buildings"},
			},
			Probability: 0.12,
		},
		{
			ID:          "hack-attack",
			Title:       "Security Breach",
			Description: "A major protocol has been hacked! High-risk DeFi buildings are temporarily affected.",
			Kind:        EventNegative,
			Duration:    8,
			Effects: []EventEffect{
				{Target: Specific("yield-farm"), Modifier: 0.2, Description: "-80% yield for Yield Farms"},
				{Target: Specific("nft-market"), Modifier: 0.5, Description: "-50% yield for NFT Marketplaces"},
			},
			Probability: 0.08,
		},
		{
			ID:          "regulation-news",
			Title:       "Favorable Regulation",
			Description: "New crypto-friendly regulations boost confidence in the ecosystem.",
			Kind:        EventPositive,
			Duration:    12,
			Effects: []EventEffect{
				{Target: AllBuildings(), Modifier: 1.25, Description: "+25% yield for all buildings"},
			},
			Probability: 0.1,
		},
		{
			ID:          "gas-spike",
			Title:       "Network Congestion",
			Description: "High gas fees are affecting transaction volume across all protocols.",
			Kind:        EventNegative,
			Duration:    6,
			Effects: []EventEffect{
				{Target: Specific("dex"), Modifier: 0.7, Description: "-30% yield for DEX Exchanges"},
			},
			Probability: 0.15,
		},
		{
			ID:          "innovation-boost",
			Title:       "Protocol Innovation",
			Description: "New DeFi innovations are attracting massive capital inflows.",
			Kind:        EventPositive,
			Duration:    8,
			Effects: []EventEffect{
				{Target: Specific("lending"), Modifier: 1.8, Description: "+80% yield for Lending Pools"},
				{Target: Specific("dex"), Modifier: 1.4, Description: "+40% yield for DEX Exchanges"},
			},
			Probability: 0.12,
		},
	}

	c := &Catalog{Buildings: buildings, Events: events}
	c.index()
	return c
}
