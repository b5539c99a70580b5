package jamf

import "encoding/xml"

// Classic API advanced computer search, JSON rendering.
type searchResponseJSON struct {
	AdvancedComputerSearch struct {
		ID        int              `json:"id"`
		Name      string           `json:"name"`
		Computers []computerRecord `json:"computers"`
	} `json:"advanced_computer_search"`
}

type computerRecord struct {
	ID   int    `json:"id" xml:"id"`
	Name string `json:"name" xml:"name"`
}

// Classic API advanced computer search, XML rendering. The XML body nests
// repeated <computer> elements under <computers>, unlike the JSON array.
type searchResponseXML struct {
	XMLName   xml.Name         `xml:"advanced_computer_search"`
	ID        int              `xml:"id"`
	Name      string           `xml:"name"`
	Computers []computerRecord `xml:"computers>computer"`
}

// Pro API computer inventory page.
type inventoryResponse struct {
	TotalCount int               `json:"totalCount"`
	Results    []inventoryRecord `json:"results"`
}

type inventoryRecord struct {
	ID              string `json:"id"`
	OperatingSystem struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"operatingSystem"`
}
