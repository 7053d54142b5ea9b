/*
Package swapmsg builds the message bodies that DeDust contracts accept for swaps.

Everything here is pure: a request struct goes in, an immutable TON cell comes out. The layouts
are fixed by the contracts, so a single misplaced bit produces a message the vault either bounces
or misreads. All builders are deterministic, equal input always gives a cell with the same hash.

There are a couple of message shapes this package knows about.

1. Swap step

A swap step describes one hop of a route. Steps form a forward-only linked list, each step
optionally carrying the next one in a reference:

	step#_ pool_addr:MsgAddressInt params:SwapStepParams = SwapStep;
	step_params#_ kind:SwapKind limit:Coins next:(Maybe ^SwapStep) = SwapStepParams;

SwapKind is a single bit and is always 0 (given_in). The limit is the minimum acceptable output
of the hop, zero meaning "no limit".

2. Swap params

	swap_params#_ deadline:Timestamp recipient_addr:MsgAddressInt referral_addr:MsgAddress
	              fulfill_payload:(Maybe ^Cell) reject_payload:(Maybe ^Cell) = SwapParams;

A missing recipient or referral is written as addr_none.

3. Native vault swap

This is the message a wallet sends to the native (TON) vault to swap TON into a jetton:

	swap#ea06185d query_id:uint64 amount:Coins _:SwapStep swap_params:^SwapParams = InMsgBody;

The swap params reference is mandatory, an empty SwapParams cell is attached when the caller has
none.

4. Jetton transfer

The standard TEP-74 transfer sent to a jetton wallet. DeDust uses the forward payload of this
message to trigger jetton swaps in the jetton vault:

	transfer#0f8a7ea5 query_id:uint64 amount:Coins destination:MsgAddress
	                  response_destination:MsgAddress custom_payload:(Maybe ^Cell)
	                  forward_ton_amount:Coins forward_payload:(Maybe ^Cell) = InMsgBody;

Only the envelope is built here, the inner forward payload is supplied by the caller.

5. Assets

Assets are passed to the factory and pool get-methods as slices:

	native$0000 = Asset;
	jetton$0001 workchain_id:int8 address:uint256 = Asset;
*/
package swapmsg
