package bulkorder

var blindTypes = []string{"Vertical Blinds", "Horizontal Blinds", "Roller Shades", "Cellular Shades", "Wood Blinds", "Aluminum Blinds"}

// CommercialBlinds is the commercial_blinds_v1 template.
func CommercialBlinds() *Template {
	return &Template{
		ID:          "commercial_blinds_v1",
		Name:        "Commercial Blinds Bulk Order",
		Description: "Template for ordering 5+ commercial blinds with standardized specifications",
		RequiredColumns: []string{
			"room_name",
			"blind_type",
			"width_inches",
			"height_inches",
			"color",
			"mount_type",
			"quantity",
			"installation_address",
			"preferred_install_date",
		},
		OptionalColumns: []string{
			"room_description",
			"special_instructions",
			"contact_person",
			"contact_phone",
			"urgency_level",
			"budget_code",
			"building_floor",
			"window_orientation",
		},
		FieldRules: []ColumnRule{
			{"room_name", StringRule{Required: true, MinLength: 2, MaxLength: 100}},
			{"blind_type", EnumRule{Required: true, Allowed: blindTypes}},
			{"width_inches", Between(true, 12, 120)},
			{"height_inches", Between(true, 12, 120)},
			{"color", StringRule{Required: true, MinLength: 2, MaxLength: 50}},
			{"mount_type", EnumRule{Required: true, Allowed: []string{"Inside Mount", "Outside Mount", "Ceiling Mount"}}},
			{"quantity", Between(true, 1, 50)},
			{"installation_address", StringRule{Required: true, MinLength: 10, MaxLength: 200}},
			{"preferred_install_date", DateRule{Required: true}},
			{"contact_phone", PhoneRule{Pattern: DefaultPhonePattern}},
			{"urgency_level", EnumRule{Allowed: []string{"Low", "Standard", "High", "Urgent"}}},
		},
		BusinessRules: []BusinessRule{
			TotalQuantityMinimum("total_quantity_minimum",
				"Total quantity across all rows must be at least 5 blinds", SeverityError),
			TotalQuantityMaximum("total_quantity_maximum",
				"Total quantity across all rows must not exceed 500 blinds", SeverityError),
			DateLeadTime("installation_date_future", "preferred_install_date", 7,
				"Installation date must be at least 7 days in the future", SeverityWarning),
			SizeLimit("standard_sizes_preferred", 96,
				`Custom sizes (width > 96" or height > 96") may incur additional costs`, SeverityWarning,
				"width_inches", "height_inches"),
		},
		MinQuantity:    5,
		MaxQuantity:    500,
		QuantityColumn: "quantity",
		Sample: map[string]string{
			"room_name":              "Conference Room A",
			"blind_type":             "Vertical Blinds",
			"width_inches":           "72",
			"height_inches":          "84",
			"color":                  "Neutral Gray",
			"mount_type":             "Inside Mount",
			"quantity":               "3",
			"installation_address":   "123 Business Plaza, Suite 100, City, State 12345",
			"preferred_install_date": "2024-02-15",
			"room_description":       "Main conference room with east-facing windows",
			"special_instructions":   "Install during business hours only",
			"contact_person":         "John Smith",
			"contact_phone":          "555-123-4567",
			"urgency_level":          "Standard",
			"budget_code":            "DEPT-001",
			"building_floor":         "1st Floor",
			"window_orientation":     "East",
		},
	}
}

// OfficeRenovation is the office_renovation_v1 template.
func OfficeRenovation() *Template {
	return &Template{
		ID:          "office_renovation_v1",
		Name:        "Office Renovation Blinds Package",
		Description: "Comprehensive template for office renovation projects with multiple room types",
		RequiredColumns: []string{
			"project_name",
			"room_type",
			"room_identifier",
			"blind_type",
			"width_inches",
			"height_inches",
			"color_scheme",
			"mount_type",
			"quantity",
			"building_address",
			"target_completion_date",
		},
		OptionalColumns: []string{
			"room_function",
			"privacy_level",
			"light_control_preference",
			"energy_efficiency_rating",
			"maintenance_requirements",
			"warranty_period",
			"installation_priority",
			"budget_allocation",
		},
		FieldRules: []ColumnRule{
			{"project_name", StringRule{Required: true, MinLength: 5, MaxLength: 100}},
			{"room_type", EnumRule{Required: true, Allowed: []string{
				"Office", "Conference Room", "Reception", "Lobby", "Break Room",
				"Executive Office", "Open Workspace", "Meeting Room",
			}}},
			{"room_identifier", StringRule{Required: true, MinLength: 2, MaxLength: 20}},
			{"blind_type", EnumRule{Required: true, Allowed: append(append([]string(nil), blindTypes...), "Solar Screens")}},
			{"width_inches", Between(true, 12, 144)},
			{"height_inches", Between(true, 12, 144)},
			{"color_scheme", StringRule{Required: true, MinLength: 3, MaxLength: 50}},
			{"mount_type", EnumRule{Required: true, Allowed: []string{"Inside Mount", "Outside Mount", "Ceiling Mount", "Wall Mount"}}},
			{"quantity", Between(true, 1, 100)},
			{"building_address", StringRule{Required: true, MinLength: 15, MaxLength: 300}},
			{"target_completion_date", DateRule{Required: true}},
			{"privacy_level", EnumRule{Allowed: []string{"Low", "Medium", "High", "Maximum"}}},
			{"light_control_preference", EnumRule{Allowed: []string{"Light Filtering", "Room Darkening", "Blackout", "Sheer"}}},
			{"installation_priority", EnumRule{Allowed: []string{"Low", "Medium", "High", "Critical"}}},
		},
		BusinessRules: []BusinessRule{
			TotalQuantityMinimum("minimum_project_size",
				"Office renovation projects must include at least 10 blinds total", SeverityError),
			TotalQuantityMaximum("total_quantity_maximum",
				"Office renovation projects must not exceed 1000 blinds total", SeverityError),
			DateLeadTime("completion_date_realistic", "target_completion_date", 14,
				"Target completion date should allow at least 14 days for manufacturing and installation", SeverityWarning),
			UniqueColumn("room_identifier_unique", "room_identifier", "room identifiers",
				"Each room identifier should be unique within the project", SeverityError),
		},
		MinQuantity:    10,
		MaxQuantity:    1000,
		QuantityColumn: "quantity",
		Sample: map[string]string{
			"project_name":             "ABC Corp Office Renovation",
			"room_type":                "Conference Room",
			"room_identifier":          "CR-001",
			"blind_type":               "Cellular Shades",
			"width_inches":             "60",
			"height_inches":            "72",
			"color_scheme":             "Corporate Blue",
			"mount_type":               "Inside Mount",
			"quantity":                 "4",
			"building_address":         "456 Corporate Center, Floor 5, Business City, State 12345",
			"target_completion_date":   "2024-03-01",
			"room_function":            "Executive meetings and presentations",
			"privacy_level":            "High",
			"light_control_preference": "Blackout",
			"energy_efficiency_rating": "Energy Star",
			"maintenance_requirements": "Low maintenance preferred",
			"warranty_period":          "5 years",
			"installation_priority":    "High",
			"budget_allocation":        "CAPEX-2024",
		},
	}
}
