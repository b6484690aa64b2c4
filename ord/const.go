package ord

// The number of satoshis in one bitcoin.
const CoinValue uint64 = 100_000_000

// Blocks between two subsidy halvings.
const SubsidyHalvingInterval uint64 = 210_000

// Blocks between two difficulty adjustments.
const DiffChangeInterval uint64 = 2016

// Halving epochs per cycle. A cycle ends when a halving and a difficulty
// adjustment fall on the same block.
const CycleEpochs uint64 = 6

// The first epoch whose subsidy is zero.
const FirstPostSubsidyEpoch Epoch = 33

// Total number of ordinals that will ever be minted.
const Supply uint64 = 2_099_999_997_690_000

// The last ordinal that will ever be minted.
const Last Ordinal = Ordinal(Supply - 1)

// The highest block height the subsidy model accepts.
const MaxHeight Height = Height(1<<32 - 1)

// The number of confirmations to be considered immutable and can't be re-organized.
const BitcoinConfirmations uint64 = 6
