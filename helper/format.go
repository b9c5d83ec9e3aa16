package helper

// ShortOrderID is the part of an order id staff read out loud.
func ShortOrderID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
