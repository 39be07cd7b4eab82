package query

// resolveLocationOrder accepts only title ordering and rejects anything else.
func resolveLocationOrder(order string) (OrderKey, error) {
	switch order {
	case "", "name", "title":
		return OrderKey{Expr: Lower(locationTitle), Direction: Asc}, nil
	default:
		return OrderKey{}, &InvalidOrderError{Kind: KindLocation, Order: order}
	}
}

// resolveHappeningOrder never fails: unknown symbols get the start-time default.
func resolveHappeningOrder(order string) OrderKey {
	switch order {
	case "name", "title":
		return OrderKey{Expr: Lower(happeningTitle), Direction: Asc}
	case "location", "venue":
		return OrderKey{Expr: Lower(locationTitle), Direction: Asc}
	default:
		return OrderKey{Expr: Plain(happeningStart), Direction: Desc}
	}
}
